// Package docs registers the paydesk OpenAPI document with swag
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/auth/remembered": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Remembered login",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Forget remembered login",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Logout",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/auth/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/loans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "List loans",
                "parameters": [
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/loans/options": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "Loan options",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/loans/{id}": {
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "Delete loan",
                "parameters": [
                    {"type": "string", "description": "Loan ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ConfirmDeleteRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/loans/{id}/delete-intent": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "Request loan delete",
                "parameters": [{"type": "string", "description": "Loan ID", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "Cancel loan delete",
                "parameters": [{"type": "string", "description": "Loan ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/loans/{id}/installments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "Loan ledger",
                "parameters": [{"type": "string", "description": "Loan ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/loans/{id}/installments/{itemId}/pay": {
            "post": {
                "description": "Only the earliest-due pending installment can be paid",
                "produces": ["application/json"],
                "tags": ["Loans"],
                "summary": "Pay installment",
                "parameters": [
                    {"type": "string", "description": "Loan ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Installment ID", "name": "itemId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/advances/{id}/payments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Advances"],
                "summary": "Advance ledger",
                "parameters": [{"type": "string", "description": "Advance ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "description": "The amount must be positive and no more than the remaining balance",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Advances"],
                "summary": "Add advance payment",
                "parameters": [
                    {"type": "string", "description": "Advance ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AdvancePaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.AdvancePaymentRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {"amount": {"type": "string", "example": "1500.00"}}
        },
        "handlers.ConfirmDeleteRequest": {
            "type": "object",
            "required": ["confirm_token"],
            "properties": {"confirm_token": {"type": "string"}}
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "meta": {},
                "error": {"type": "string"}
            }
        },
        "services.LoginInput": {
            "type": "object",
            "properties": {
                "number": {"type": "string", "example": "9876543210"},
                "password": {"type": "string"},
                "remember_me": {"type": "boolean"},
                "use_remembered": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "paydesk API",
	Description:      "Backend for the payroll loan dashboard",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
