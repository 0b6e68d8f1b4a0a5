// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "x-api-key",
            "in": "header"
        }
    },
    "paths": {
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/campaigns": {
            "get": {"tags": ["campaigns"], "summary": "List campaigns", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["campaigns"], "summary": "Create a campaign", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/campaigns/{id}": {
            "get": {"tags": ["campaigns"], "summary": "Get a campaign", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["campaigns"], "summary": "Delete a campaign", "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/campaigns/{id}/progress": {"get": {"tags": ["campaigns"], "summary": "Get campaign progress", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/campaigns/{id}/send": {"post": {"tags": ["campaigns"], "summary": "Start sending a campaign", "responses": {"202": {"description": "Accepted"}}}},
        "/api/v1/dashboard/stats": {"get": {"tags": ["dashboard"], "summary": "Dashboard statistics", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/senders": {
            "get": {"tags": ["senders"], "summary": "List senders", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["senders"], "summary": "Create a sender", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/senders/{id}": {
            "get": {"tags": ["senders"], "summary": "Get a sender", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["senders"], "summary": "Update a sender", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["senders"], "summary": "Delete a sender", "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/senders/{id}/test": {"post": {"tags": ["senders"], "summary": "Test a sender connection", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/lists": {
            "get": {"tags": ["lists"], "summary": "List contact lists", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["lists"], "summary": "Create a contact list", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/lists/{id}": {
            "get": {"tags": ["lists"], "summary": "Get a contact list", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["lists"], "summary": "Update a contact list", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["lists"], "summary": "Delete a contact list", "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/contacts/{id}": {
            "get": {"tags": ["contacts"], "summary": "Get a contact", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["contacts"], "summary": "Update a contact", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["contacts"], "summary": "Delete a contact", "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/lists/{id}/contacts": {
            "get": {"tags": ["lists"], "summary": "List contacts of a list", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["lists"], "summary": "Add a contact to a list", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/lists/{id}/contacts/import": {"post": {"tags": ["lists"], "summary": "Import contacts from CSV", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/admin/migrate-senders": {"post": {"tags": ["admin"], "summary": "Resolve missing sender instance ids", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/admin/monitor": {"get": {"tags": ["admin"], "summary": "Stale-run monitor status", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/admin/monitor/start": {"post": {"tags": ["admin"], "summary": "Start the stale-run monitor", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/admin/monitor/stop": {"post": {"tags": ["admin"], "summary": "Stop the stale-run monitor", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "WhatsApp Campaign Service API",
	Description:      "Bulk WhatsApp campaign dispatch over waapi.app",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
