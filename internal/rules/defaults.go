package rules

// defaultRulesYAML is the rule vocabulary used when no rules file is set.
const defaultRulesYAML = `
version: "2025.1"
rules:
  - name: failure-keywords
    kind: keyword
    keywords: ["not valid", "failed", "error", "mandatory", "missing"]
  - name: missing-order-id
    kind: missing_order_id
    reason: Missing order id
agencies:
  axxess:
    - name: axxess-keywords
      kind: keyword
      keywords: ["no patient", "non da"]
`
