package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Registrar Document Request API",
        "description": "Document request submission and tracking for the university registrar",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Wizard", "description": "Multi-step request submission"},
        {"name": "Payments", "description": "Checkout round-trip and payment marking"},
        {"name": "Requests", "description": "Tracking board and admin operations"},
        {"name": "Catalog", "description": "Offered documents and requirements"},
        {"name": "Exports", "description": "Claim stubs and registry exports"},
        {"name": "Users", "description": "Admin account management"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/wizard/start": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Start or resume the submission wizard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}}
                }
            }
        },
        "/wizard": {
            "get": {
                "tags": ["Wizard"],
                "summary": "Get current wizard state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}},
                    "404": {"description": "No wizard in progress"}
                }
            },
            "delete": {
                "tags": ["Wizard"],
                "summary": "Discard the in-progress wizard",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/wizard/navigate": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Move the wizard forward or back",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NavigateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}},
                    "409": {"description": "Event not allowed from the current step"}
                }
            }
        },
        "/wizard/documents": {
            "put": {
                "tags": ["Wizard"],
                "summary": "Set the document selection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectDocumentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}}
                }
            }
        },
        "/wizard/uploads": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Upload a requirement file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "requirement", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}},
                    "400": {"description": "File too large or unsupported type"}
                }
            }
        },
        "/wizard/uploads/{requirement}": {
            "delete": {
                "tags": ["Wizard"],
                "summary": "Remove an uploaded requirement file",
                "parameters": [
                    {"name": "requirement", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}},
                    "404": {"description": "No upload recorded for the requirement"}
                }
            }
        },
        "/wizard/uploads/complete": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Confirm all requirement uploads are present",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}},
                    "400": {"description": "Missing requirements listed in the error message"}
                }
            }
        },
        "/wizard/contact": {
            "put": {
                "tags": ["Wizard"],
                "summary": "Set the preferred contact channel",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PreferredContactRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WizardState"}}
                }
            }
        },
        "/wizard/submit": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Finalize the wizard into a tracked request",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SubmitResponse"}},
                    "402": {"description": "Payment required before submitting"},
                    "409": {"description": "Wizard is not on the summary step"}
                }
            }
        },
        "/wizard/payment/checkout": {
            "post": {
                "tags": ["Payments"],
                "summary": "Start a payment checkout for the wizard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CheckoutResponse"}}
                }
            }
        },
        "/wizard/payment/return": {
            "get": {
                "tags": ["Payments"],
                "summary": "Handle the redirect back from the payment gateway",
                "parameters": [
                    {"name": "payment", "in": "query", "required": true, "type": "string", "enum": ["success", "failure", "cancel"]},
                    {"name": "tracking", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PaymentReturnResponse"}},
                    "409": {"description": "Tracking id does not match the preserved checkout"}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List document requests (admin board)",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Display status label"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/mine": {
            "get": {
                "tags": ["Requests"],
                "summary": "List the authenticated student's requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get one request with documents and requirements",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RequestResponse"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/requests/{id}/status": {
            "put": {
                "tags": ["Requests"],
                "summary": "Transition a request to a new status",
                "description": "A rejected transition answers 409 with a restriction descriptor in the meta block.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition blocked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/assignee": {
            "put": {
                "tags": ["Requests"],
                "summary": "Assign an admin to a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/requests/{id}/documents/{docId}": {
            "put": {
                "tags": ["Requests"],
                "summary": "Toggle the done flag on a requested document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "docId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/requests/{id}/payment": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record an over-the-counter payment for a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/requests/{id}/claim-stub": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the claim stub PDF via signed token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF file"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/requests/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the request registry as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/catalog/documents": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List documents offered to students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Register a catalog document",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List user accounts",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string", "enum": ["SUPERADMIN", "ADMIN", "STUDENT"]},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Provision a user account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/UserResponse"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/users/{id}": {
            "patch": {
                "tags": ["Users"],
                "summary": "Update a user account",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UserResponse"}},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Deactivate a user account",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/catalog/requirements": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List the requirement catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Register a requirement catalog entry",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "NavigateRequest": {
            "type": "object",
            "properties": {
                "event": {"type": "string", "enum": ["advance", "back", "createNewAnyway"]}
            },
            "required": ["event"]
        },
        "SelectDocumentsRequest": {
            "type": "object",
            "properties": {
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "docId": {"type": "string"},
                            "name": {"type": "string"},
                            "quantity": {"type": "integer"}
                        }
                    }
                }
            },
            "required": ["documents"]
        },
        "PreferredContactRequest": {
            "type": "object",
            "properties": {
                "method": {"type": "string", "enum": ["Email", "SMS", "WhatsApp", "Telegram"]},
                "remarks": {"type": "string"}
            },
            "required": ["method"]
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "displayStatus": {"type": "string", "enum": ["Pending", "Processing", "Unpaid", "Ready", "Done", "Change"]}
            },
            "required": ["displayStatus"]
        },
        "WizardState": {
            "type": "object",
            "properties": {
                "step": {"type": "string"},
                "selectedDocs": {"type": "array", "items": {"type": "object"}},
                "uploads": {"type": "object"},
                "requirements": {"type": "array", "items": {"type": "string"}},
                "preferredContact": {"type": "string"},
                "totalPrice": {"type": "number"},
                "requiresPayment": {"type": "boolean"},
                "paymentCompleted": {"type": "boolean"}
            }
        },
        "SubmitResponse": {
            "type": "object",
            "properties": {
                "trackingId": {"type": "string"},
                "claimStubUrl": {"type": "string"}
            }
        },
        "CheckoutResponse": {
            "type": "object",
            "properties": {
                "checkoutId": {"type": "string"},
                "checkoutUrl": {"type": "string"},
                "amount": {"type": "number"}
            }
        },
        "PaymentReturnResponse": {
            "type": "object",
            "properties": {
                "outcome": {"type": "string"},
                "step": {"type": "string"},
                "paymentCompleted": {"type": "boolean"},
                "retained": {"type": "boolean"}
            }
        },
        "RequestResponse": {
            "type": "object",
            "properties": {
                "trackingId": {"type": "string"},
                "studentId": {"type": "string"},
                "displayStatus": {"type": "string"},
                "paid": {"type": "boolean"},
                "totalPrice": {"type": "number"},
                "preferredContact": {"type": "string"},
                "documents": {"type": "array", "items": {"type": "object"}},
                "createdAt": {"type": "string"}
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "fullName": {"type": "string"},
                "studentNumber": {"type": "string"},
                "role": {"type": "string", "enum": ["SUPERADMIN", "ADMIN", "STUDENT"]}
            },
            "required": ["email", "password", "fullName", "role"]
        },
        "UpdateUserRequest": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "studentNumber": {"type": "string"},
                "role": {"type": "string", "enum": ["SUPERADMIN", "ADMIN", "STUDENT"]},
                "active": {"type": "boolean"}
            }
        },
        "UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "fullName": {"type": "string"},
                "studentNumber": {"type": "string"},
                "role": {"type": "string"},
                "active": {"type": "boolean"},
                "lastLogin": {"type": "string"},
                "createdAt": {"type": "string"}
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
