// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue an access token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.TokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/audits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "List audit history",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "query", "name": "from"},
                    {"type": "string", "in": "query", "name": "to"},
                    {"type": "string", "in": "query", "name": "agency"},
                    {"type": "integer", "in": "query", "name": "limit"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "Run an audit of a source folder",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RunRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "409": {"description": "Run already recorded", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/audits/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "Audit uploaded exports",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "file", "in": "formData", "name": "files", "required": true},
                    {"type": "string", "in": "formData", "name": "agency"},
                    {"type": "string", "in": "formData", "name": "ehr"},
                    {"type": "string", "in": "formData", "name": "triggered_at"}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        },
        "/audits/batch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "Run audits for several folders",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/handler.BatchRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        },
        "/audits/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "Get an audit record",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/audits/{id}/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "Export scored orders as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"type": "boolean", "in": "query", "name": "failures_only"}
                ],
                "responses": {"200": {"description": "CSV file", "schema": {"type": "file"}}}
            }
        },
        "/audits/{id}/archive": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["audits"],
                "summary": "Get a download URL for an archived record",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        },
        "/exports/{folder_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["exports"],
                "summary": "List the exports in a source folder",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "folder_id", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handler.BatchRequest": {
            "type": "object",
            "properties": {"folder_ids": {"type": "array", "items": {"type": "string"}}, "triggered_at": {"type": "string"}}
        },
        "handler.ErrorResponseBody": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handler.APIError"}, "success": {"type": "boolean", "example": false}}
        },
        "handler.Response": {
            "type": "object",
            "properties": {"data": {}, "success": {"type": "boolean", "example": true}}
        },
        "handler.RunRequest": {
            "type": "object",
            "required": ["folder_id"],
            "properties": {"folder_id": {"type": "string", "example": "luna-vista"}, "triggered_at": {"type": "string"}}
        },
        "handler.TokenRequest": {
            "type": "object",
            "required": ["client_id", "client_secret"],
            "properties": {"client_id": {"type": "string", "example": "rpa-bot"}, "client_secret": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Order Audit API",
	Description:      "Scores RPA order exports, pairs signed and unsigned cohorts, and keeps an immutable audit history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
