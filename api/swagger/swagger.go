package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Document Request Portal API",
        "description": "Operator and anonymous upload endpoints for document requests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Portal", "description": "Anonymous token-scoped upload portal"},
        {"name": "Document Requests", "description": "Request lifecycle and review"},
        {"name": "Entity Types", "description": "Per-entity-type portal configuration"},
        {"name": "Activity", "description": "Review assignments and audit history"}
    ],
    "paths": {
        "/portal/{token}": {
            "get": {
                "tags": ["Portal"],
                "summary": "Validate a portal token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionViewEnvelope"}},
                    "404": {"description": "Token invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/{token}/files": {
            "post": {
                "tags": ["Portal"],
                "summary": "Upload documents",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "files", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Accepted", "schema": {"$ref": "#/definitions/UploadResultEnvelope"}},
                    "400": {"description": "Batch rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Token invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/downloads/{token}": {
            "get": {
                "tags": ["Document Requests"],
                "summary": "Stream an artifact through a signed link",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File content"},
                    "404": {"description": "Link invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Activity"],
                "summary": "Current operator",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests": {
            "get": {
                "tags": ["Document Requests"],
                "summary": "List document requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "originatingType", "in": "query", "type": "string"},
                    {"name": "originatingId", "in": "query", "type": "string"},
                    {"name": "requestedBy", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Document Requests"],
                "summary": "Create a document request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}": {
            "get": {
                "tags": ["Document Requests"],
                "summary": "Get a document request with its files",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}/send": {
            "post": {
                "tags": ["Document Requests"],
                "summary": "Send a draft request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}/commit": {
            "post": {
                "tags": ["Document Requests"],
                "summary": "Link approved files and complete the request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}/reject": {
            "post": {
                "tags": ["Document Requests"],
                "summary": "Reject a request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}/files/{fileId}/review": {
            "patch": {
                "tags": ["Document Requests"],
                "summary": "Approve or reject one file",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "fileId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewFileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}/files/{fileId}/download-url": {
            "get": {
                "tags": ["Document Requests"],
                "summary": "Issue a signed download link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "fileId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/document-requests/{id}/manifest": {
            "get": {
                "tags": ["Document Requests"],
                "summary": "Export the file manifest",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Manifest document"}
                }
            }
        },
        "/document-requests/{id}/history": {
            "get": {
                "tags": ["Activity"],
                "summary": "Audit history of a request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/review-assignments": {
            "get": {
                "tags": ["Activity"],
                "summary": "Open review assignments of the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/entity-types": {
            "get": {
                "tags": ["Entity Types"],
                "summary": "List active entity type configurations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/entity-types/{typeId}": {
            "get": {
                "tags": ["Entity Types"],
                "summary": "Get an entity type configuration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "typeId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Entity Types"],
                "summary": "Create or replace a configuration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "typeId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertEntityTypeConfigRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/entity-types/{typeId}/active": {
            "patch": {
                "tags": ["Entity Types"],
                "summary": "Toggle a configuration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "typeId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetEntityTypeActiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/entity-types/cache": {
            "delete": {
                "tags": ["Entity Types"],
                "summary": "Flush cached configurations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Flushed"}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Activity"],
                "summary": "Point-in-time activity summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateDocumentRequest": {
            "type": "object",
            "required": ["originatingType", "originatingId"],
            "properties": {
                "originatingType": {"type": "string"},
                "originatingId": {"type": "string"},
                "instructions": {"type": "string"},
                "internalNotes": {"type": "string"},
                "expirationOverrideDays": {"type": "integer"},
                "saveAsDraft": {"type": "boolean"}
            }
        },
        "RejectDocumentRequest": {
            "type": "object",
            "required": ["notes"],
            "properties": {
                "notes": {"type": "string"}
            }
        },
        "ReviewFileRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "reason": {"type": "string"}
            }
        },
        "UpsertEntityTypeConfigRequest": {
            "type": "object",
            "required": ["recipientEmailPath", "defaultExpirationDays", "maxFileSizeBytes", "maxFilesPerUpload", "allowedExtensions"],
            "properties": {
                "isActive": {"type": "boolean"},
                "recipientEmailPath": {"type": "string"},
                "recipientNamePath": {"type": "string"},
                "recipientRefPath": {"type": "string"},
                "defaultExpirationDays": {"type": "integer"},
                "maxFileSizeBytes": {"type": "integer"},
                "maxFilesPerUpload": {"type": "integer"},
                "allowedExtensions": {"type": "array", "items": {"type": "string"}},
                "quickActionLabel": {"type": "string"},
                "notificationTemplateId": {"type": "string"}
            }
        },
        "SetEntityTypeActiveRequest": {
            "type": "object",
            "required": ["isActive"],
            "properties": {
                "isActive": {"type": "boolean"}
            }
        },
        "SessionView": {
            "type": "object",
            "properties": {
                "displayNumber": {"type": "string"},
                "requestDate": {"type": "string", "format": "date-time"},
                "instructions": {"type": "string"},
                "receivedFileCount": {"type": "integer"},
                "limits": {"type": "object"}
            }
        },
        "SessionViewEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/SessionView"}
            }
        },
        "UploadResult": {
            "type": "object",
            "properties": {
                "accepted": {"type": "integer"},
                "receivedFileCount": {"type": "integer"}
            }
        },
        "UploadResultEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/UploadResult"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
