// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {
            "post": {"tags": ["auth"], "summary": "Register a user and open a session",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed or unknown role"}, "403": {"description": "Privileged roles cannot be self-assigned"}, "409": {"description": "User already exists"}}}
        },
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "Exchange email and password for an access and refresh token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid email or password"}}}
        },
        "/auth/refresh": {
            "post": {"tags": ["auth"], "summary": "Rotate a refresh token into a new token pair",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Refresh token missing, invalid or expired"}}}
        },
        "/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Acknowledge logout; the client discards its tokens",
                "responses": {"200": {"description": "OK"}}}
        },
        "/auth/me": {
            "get": {"tags": ["auth"], "summary": "Claims of the caller", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/auth/change-password": {
            "put": {"tags": ["auth"], "summary": "Change the caller's password", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/admin/users": {
            "get": {"tags": ["admin"], "summary": "List users (admin, super_admin)", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/issues": {
            "get": {"tags": ["issues"], "summary": "List issues newest first", "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["OPEN", "IN_PROGRESS", "CLOSED"]},
                    {"name": "priority", "in": "query", "type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]},
                    {"name": "role", "in": "query", "type": "string", "enum": ["user", "admin", "super_admin"]}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid filter"}}},
            "post": {"tags": ["issues"], "summary": "Create an issue", "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}}
        },
        "/issues/{id}": {
            "get": {"tags": ["issues"], "summary": "Get an issue", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Issue not found"}}},
            "put": {"tags": ["issues"], "summary": "Update an issue (owner, admin, super_admin)", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden: not your issue"}, "404": {"description": "Issue not found"}}},
            "delete": {"tags": ["issues"], "summary": "Delete an issue (owner, admin, super_admin)", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden: not your issue"}, "404": {"description": "Issue not found"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "issuetrack API",
	Description:      "Issue tracker backend with JWT access and refresh tokens.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
