package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tax Portal API",
        "description": "Tax administration portal: self-assessments, payments, documents, clearance certificates and reporting",
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
        {"name": "Auth", "description": "Registration, login and session management"},
        {"name": "Users", "description": "User administration and profiles"},
        {"name": "Assessments", "description": "Self-assessment filing"},
        {"name": "Payments", "description": "Assessment settlement and receipts"},
        {"name": "Documents", "description": "Evidence upload and review"},
        {"name": "Clearance", "description": "Tax clearance certificate requests"},
        {"name": "Notifications", "description": "In-app notification inbox"},
        {"name": "Tax Configuration", "description": "Tax rate administration"},
        {"name": "Dashboard", "description": "Taxpayer and portal summaries"},
        {"name": "Reports", "description": "Asynchronous CSV and PDF exports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a taxpayer account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate TIN or email", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/bootstrap": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create the first administrator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BootstrapAdminRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Administrator already configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue tokens",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current session identity",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "security": [{"BearerAuth": []}],
                "summary": "Taxpayer dashboard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "security": [{"BearerAuth": []}],
                "summary": "Portal-wide dashboard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/taxpayers": {
            "get": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "List taxpayer accounts",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assessments": {
            "get": {
                "tags": ["Assessments"],
                "security": [{"BearerAuth": []}],
                "summary": "List own assessments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assessments"],
                "security": [{"BearerAuth": []}],
                "summary": "File a self-assessment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssessmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Missing rate configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assessments/{id}": {
            "get": {
                "tags": ["Assessments"],
                "security": [{"BearerAuth": []}],
                "summary": "Get one assessment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "List own payments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Settle an assessment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SettlePaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already paid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents": {
            "get": {
                "tags": ["Documents"],
                "security": [{"BearerAuth": []}],
                "summary": "List own documents",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Documents"],
                "security": [{"BearerAuth": []}],
                "summary": "Upload an evidence document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "document_type", "in": "formData", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unsupported type or size", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a document via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/receipt": {
            "get": {
                "tags": ["Payments"],
                "summary": "Download a payment receipt via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream"},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tcc": {
            "get": {
                "tags": ["Clearance"],
                "security": [{"BearerAuth": []}],
                "summary": "Get own clearance status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Clearance"],
                "security": [{"BearerAuth": []}],
                "summary": "Request a clearance certificate",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "security": [{"BearerAuth": []}],
                "summary": "List own notifications",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tax-config": {
            "get": {
                "tags": ["Tax Configuration"],
                "security": [{"BearerAuth": []}],
                "summary": "List configured tax rates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/tax-config": {
            "put": {
                "tags": ["Tax Configuration"],
                "security": [{"BearerAuth": []}],
                "summary": "Update tax rates",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTaxConfigurationsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rate out of range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/generate": {
            "post": {
                "tags": ["Reports"],
                "security": [{"BearerAuth": []}],
                "summary": "Queue a report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "security": [{"BearerAuth": []}],
                "summary": "Poll report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the job owner", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report via signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "tin": {"type": "string"},
                "taxpayer_type": {"type": "string", "enum": ["Individual", "Organization"]}
            },
            "required": ["email", "password", "full_name", "tin", "taxpayer_type"]
        },
        "BootstrapAdminRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"}
            },
            "required": ["email", "password", "full_name"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateAssessmentRequest": {
            "type": "object",
            "properties": {
                "taxpayer_id": {"type": "string"},
                "tax_type": {"type": "string", "enum": ["Personal Income Tax", "Business Tax", "Withholding Tax"]},
                "period": {"type": "string"},
                "taxable_income": {"type": "string"}
            },
            "required": ["tax_type", "period", "taxable_income"]
        },
        "SettlePaymentRequest": {
            "type": "object",
            "properties": {
                "assessment_id": {"type": "string"},
                "amount": {"type": "string"}
            },
            "required": ["assessment_id"]
        },
        "UpdateTaxConfigurationsRequest": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/TaxConfigurationItem"}
                }
            },
            "required": ["items"]
        },
        "TaxConfigurationItem": {
            "type": "object",
            "properties": {
                "tax_type": {"type": "string"},
                "rate": {"type": "string"}
            },
            "required": ["tax_type", "rate"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["assessments", "payments", "taxpayers"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "taxpayer_id": {"type": "string"},
                "period": {"type": "string"}
            },
            "required": ["type", "format"]
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
