// Package swagger registers the OpenAPI document served at /swagger. It
// mirrors the handler annotations; `go generate ./cmd/api` rewrites it with
// swag.
package swagger

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
        "/auth/callback": {
            "get": {
                "description": "Exchanges the provider code and returns a bearer token whose subject is the user's identity.",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Finish sign-in",
                "parameters": [
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query", "required": true},
                    {"type": "string", "description": "State echoed by the provider", "name": "state", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/response.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/auth.Session"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/auth/login": {
            "get": {
                "description": "Redirects to the OAuth session provider. A state cookie guards the callback.",
                "tags": ["auth"],
                "summary": "Start sign-in",
                "responses": {
                    "302": {"description": "Found"},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/blobs/delete/{token}": {
            "get": {
                "description": "Follows a deletion link issued by the upload endpoint.",
                "produces": ["application/json"],
                "tags": ["blobs"],
                "summary": "Delete an audio blob",
                "parameters": [
                    {"type": "string", "description": "Deletion token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/blobs/upload": {
            "post": {
                "description": "Tixte-compatible upload. Multipart form with payload_json ({domain, name}) and file. Authorization carries the raw API key.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["blobs"],
                "summary": "Upload an audio blob",
                "parameters": [
                    {"type": "string", "description": "Storage API key", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "description": "{\"domain\":\"...\",\"name\":\"a.mp3\"}", "name": "payload_json", "in": "formData", "required": true},
                    {"type": "file", "description": "Audio file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/response.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/blobstore.uploadResult"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/credential": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the blob service API key sealed with the shared credential secret. Expires after the configured TTL.",
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Get upload credential",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/response.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/credential.credentialData"}}}]}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/trim": {
            "post": {
                "description": "Disabled. Always answers 403.",
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Trim audio",
                "responses": {
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/uploads": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "With audioLink: returns title, visibility and whether the caller owns it. Otherwise lists the caller's uploads (unsorted).",
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "List uploads or read one",
                "parameters": [
                    {"type": "string", "description": "Public link of one upload", "name": "audioLink", "in": "query"},
                    {"type": "string", "description": "Identity to list; must match the token", "name": "identity", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/response.Envelope"}, {"type": "object", "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/audio.Summary"}}}}]}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Appends a record to the caller's profile, creating the profile on first use. Not idempotent. deletionUrl must point at an allowed deletion host.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Save upload metadata",
                "parameters": [
                    {"description": "Upload metadata", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/audio.createRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/response.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/audio.Profile"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Revokes the blob through its deletion URL, then removes the metadata. A failed revocation keeps the record.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Delete an upload",
                "parameters": [
                    {"description": "Upload to delete", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/audio.deleteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Changes title and/or visibility of one of the caller's uploads. Omitted or null fields stay unchanged.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Edit upload details",
                "parameters": [
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/audio.patchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/response.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/audio.Record"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "audio.Profile": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "identity": {"type": "string"},
                "updatedAt": {"type": "string"},
                "uploads": {"type": "array", "items": {"$ref": "#/definitions/audio.Record"}}
            }
        },
        "audio.Record": {
            "type": "object",
            "properties": {
                "audioLink": {"type": "string"},
                "createdAt": {"type": "string"},
                "deletionUrl": {"type": "string"},
                "private": {"type": "boolean"},
                "title": {"type": "string"}
            }
        },
        "audio.Summary": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "deletionUrl": {"type": "string"},
                "link": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "audio.createRequest": {
            "type": "object",
            "properties": {
                "audioLink": {"type": "string", "example": "https://cdn.jaylen.nyc/a.mp3"},
                "createdAt": {"type": "string"},
                "deletionUrl": {"type": "string", "example": "https://api.tixte.com/v1/upload/a/delete"},
                "identity": {"type": "string", "example": "u1@example.com"},
                "private": {"type": "boolean", "example": true},
                "title": {"type": "string", "example": "Song A"}
            }
        },
        "audio.deleteRequest": {
            "type": "object",
            "properties": {
                "audioLink": {"type": "string", "example": "https://cdn.jaylen.nyc/a.mp3"}
            }
        },
        "audio.patchRequest": {
            "type": "object",
            "properties": {
                "audioLink": {"type": "string", "example": "https://cdn.jaylen.nyc/a.mp3"},
                "identity": {"type": "string", "example": "u1@example.com"},
                "public": {"type": "boolean", "example": false},
                "title": {"type": "string", "example": "Song B"}
            }
        },
        "auth.Session": {
            "type": "object",
            "properties": {
                "identity": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "blobstore.uploadResult": {
            "type": "object",
            "properties": {
                "deletion_url": {"type": "string", "example": "http://localhost:8080/api/blobs/delete/eyJhbGciOi..."},
                "direct_url": {"type": "string", "example": "http://localhost:9000/audios/2024/05/01/6f1c.mp3"}
            }
        },
        "credential.credentialData": {
            "type": "object",
            "properties": {
                "apiKey": {"type": "string", "example": "q83vEjRWeJq8..."}
            }
        },
        "response.Envelope": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "success": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: **Bearer {token}**",
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
	Title:            "FE2 Audio API",
	Description:      "Upload metadata, upload credentials and a self-hosted blob endpoint for FE2 audio clips.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
