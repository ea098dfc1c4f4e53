package naming_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orderaudit/internal/domain"
	"orderaudit/internal/naming"
)

func TestCohortKey(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"signed template", "Axxess-LunaVista_SignedOrderTemplate_0121.xlsx", "Axxess-LunaVista"},
		{"unsigned template", "Axxess-LunaVista_UnsignedOrderTemplate_0121.csv", "Axxess-LunaVista"},
		{"short signed", "Kinnser-Loyal-HomeCare_signed.csv", "Kinnser-Loyal-HomeCare"},
		{"generic template", "Athena-Bright_OrderTemplate.xlsx", "Athena-Bright"},
		{"no marker", "exports.csv", "exports"},
		{"marker at start", "_signed.csv", "_signed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, naming.CohortKey(tt.file))
		})
	}
}

func TestTemplateTypeAndCohort(t *testing.T) {
	assert.Equal(t, domain.TemplateUnsigned, naming.TemplateType("X_UnsignedOrderTemplate.csv"))
	assert.Equal(t, domain.TemplateSigned, naming.TemplateType("X_SignedOrderTemplate.csv"))
	assert.Equal(t, domain.TemplateMixed, naming.TemplateType("X_OrderTemplate.csv"))

	assert.Equal(t, domain.CohortSigned, naming.Cohort("X_SignedOrderTemplate.csv"))
	assert.Equal(t, domain.CohortUnsigned, naming.Cohort("X_UnsignedOrderTemplate.csv"))
	assert.Equal(t, domain.CohortUnsigned, naming.Cohort("X_OrderTemplate.csv"))
}

func TestAgencyAndEHR(t *testing.T) {
	assert.Equal(t, "LunaVistaHomeHealthcare", naming.Agency("Axxess-LunaVistaHomeHealthcare_SignedOrderTemplate.xlsx"))
	assert.Equal(t, "Loyal HomeCare", naming.Agency("kinnser-Loyal-HomeCare_UnsignedOrder.csv"))
	assert.Equal(t, "Athena", naming.Agency("athena_export_OrderTemplate.csv"))
	assert.Equal(t, naming.UnknownAgency, naming.Agency("random.csv"))

	assert.Equal(t, "Axxess", naming.EHR("AXXESS-foo.csv"))
	assert.Equal(t, "HCHB", naming.EHR("hchb-bar_signed.csv"))
	assert.Equal(t, naming.UnknownAgency, naming.EHR("bar.csv"))
}

func TestDescribe(t *testing.T) {
	meta := naming.Describe("Axxess-Luna-Vista_UnsignedOrderTemplate.csv")
	assert.Equal(t, domain.FileMeta{
		Name:         "Axxess-Luna-Vista_UnsignedOrderTemplate.csv",
		TemplateType: domain.TemplateUnsigned,
		Cohort:       domain.CohortUnsigned,
		CohortKey:    "Axxess-Luna-Vista",
		Agency:       "Luna Vista",
		EHR:          "Axxess",
	}, meta)
}

func TestIsOrderExport(t *testing.T) {
	assert.True(t, naming.IsOrderExport("A_SignedOrderTemplate.xlsx", "OrderTemplate"))
	assert.True(t, naming.IsOrderExport("a_ordertemplate.CSV", "OrderTemplate"))
	assert.False(t, naming.IsOrderExport("A_Summary.xlsx", "OrderTemplate"))
	assert.False(t, naming.IsOrderExport("A_OrderTemplate.pdf", "OrderTemplate"))
	assert.True(t, naming.IsOrderExport("anything.csv", ""))
}
