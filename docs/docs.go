// Package docs registers the Swagger document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/insights/report": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Contact timing and reasons report",
                "parameters": [
                    {"type": "string", "default": "30d", "description": "Time period: 7d, 15d, 30d, 60d, 90d", "name": "period", "in": "query"},
                    {"type": "string", "description": "Restrict to one inbox", "name": "inboxId", "in": "query"},
                    {"type": "string", "description": "Restrict to one instance", "name": "instanceId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/insights.Report"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Build a report from a caller-supplied snapshot",
                "parameters": [
                    {"description": "Snapshot", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ReportSnapshotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/insights.Report"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/insights/business-hours": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Hour-of-day histogram and period summary",
                "parameters": [
                    {"type": "string", "default": "30d", "name": "period", "in": "query"},
                    {"type": "string", "name": "inboxId", "in": "query"},
                    {"type": "string", "name": "instanceId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BusinessHoursResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/insights/reasons/search": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Fuzzy search over normalized contact reasons",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "default": 10, "name": "limit", "in": "query"},
                    {"type": "string", "default": "30d", "name": "period", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ReasonSearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/insights/group-reasons": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Group a reason frequency list into categories",
                "parameters": [
                    {"description": "Reasons", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.GroupReasonsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GroupReasonsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/statistics": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["statistics"],
                "summary": "Get dashboard statistics",
                "parameters": [
                    {"type": "string", "default": "30d", "name": "period", "in": "query"},
                    {"type": "string", "name": "inboxId", "in": "query"},
                    {"type": "string", "name": "instanceId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StatisticsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "insights.Report": {"type": "object"},
        "models.ReportSnapshotRequest": {"type": "object"},
        "models.BusinessHoursResponse": {"type": "object"},
        "models.ReasonSearchResponse": {"type": "object"},
        "models.GroupReasonsRequest": {"type": "object"},
        "models.GroupReasonsResponse": {"type": "object"},
        "models.StatisticsResponse": {"type": "object"}
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Helpdesk Insights API",
	Description:      "Contact timing and contact reason insights for helpdesk inboxes",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
