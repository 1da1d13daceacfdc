// Package docs holds the Swagger 2.0 document served at /swagger/*.
// It is maintained by hand alongside the routes in internal/http/handler.
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
        "/entries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["entries"],
                "summary": "List root entries",
                "parameters": [
                    {"type": "integer", "default": 10, "description": "Page size (max 100)", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.EntryListResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["entries"],
                "summary": "Create an entry",
                "parameters": [
                    {"description": "Entry properties", "name": "entry", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.Entry"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/controller.EntryResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/entries/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["entries"],
                "summary": "Get an entry with its direct children",
                "parameters": [
                    {"type": "string", "description": "Entry ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controller.EntryResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "tags": ["entries"],
                "summary": "Remove an entry and its subtree",
                "parameters": [
                    {"type": "string", "description": "Entry ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/entries/{id}/attachment": {
            "get": {
                "tags": ["attachments"],
                "summary": "Redirect to a presigned download URL",
                "parameters": [
                    {"type": "string", "description": "Entry ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["attachments"],
                "summary": "Upload or replace the entry attachment",
                "parameters": [
                    {"type": "string", "description": "Entry ID", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Attachment", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/controller.EntryResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Database readiness",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "controller.EntryResult": {
            "type": "object",
            "properties": {
                "result": {"$ref": "#/definitions/model.Entry"}
            }
        },
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {"$ref": "#/definitions/handler.errorEnvelope"}
            }
        },
        "model.Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "parent_id": {"type": "string"},
                "title": {"type": "string"},
                "body": {"type": "string"},
                "attachment_path": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "children": {"type": "array", "items": {"$ref": "#/definitions/model.Entry"}}
            }
        },
        "service.EntryListResult": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Entry"}},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Entry API",
	Description:      "Hierarchical entries with object-storage attachments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
