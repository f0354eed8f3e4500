// Package docs регистрирует OpenAPI-описание портала для /docs.
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
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Регистрация разработчика",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/register.Request"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Вход по имени пользователя или email",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/login.Request"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Текущий пользователь",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/pricing": {
            "get": {
                "tags": ["Billing"],
                "summary": "Каталог тарифов",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/payments/intent": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Billing"],
                "summary": "Создание платёжного намерения",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/paymentcreate.Request"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/payments/intent/{id}/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Billing"],
                "summary": "Опрос статуса платежа со сверкой",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"type": "boolean", "in": "query", "name": "force_create"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "tags": ["Billing"],
                "summary": "Уведомления платёжного провайдера",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "header", "name": "X-Api-Signature", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/subscriptions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscriptions"],
                "summary": "Оформление подписки",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/subscriptions/active": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscriptions"],
                "summary": "Активная подписка",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/subscriptions/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscriptions"],
                "summary": "Отмена своей подписки",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/accounts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Banking"],
                "summary": "Счета пользователя",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/transactions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Banking"],
                "summary": "Операции по счетам",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "in": "query", "name": "page", "minimum": 1},
                    {"type": "integer", "in": "query", "name": "pageSize", "minimum": 1, "maximum": 100}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/transfer": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Banking"],
                "summary": "Перевод между счетами",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/invoices": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Banking"],
                "summary": "Выставленные счета",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Logs"],
                "summary": "Мой журнал запросов",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Список пользователей",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/admin/users/{id}/role": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Смена роли пользователя",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/admin.RoleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/admin/subscriptions/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Принудительная отмена подписки",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/admin/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Журнал аудита",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "query", "name": "userId"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "error": {"type": "string"},
                "data": {}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "Error"},
                "kind": {"type": "string", "example": "validation_error"},
                "error": {"type": "string"},
                "redirect": {"type": "string", "example": "/pricing"},
                "retry_after": {"type": "integer", "example": 42}
            }
        },
        "register.Request": {
            "type": "object",
            "required": ["username", "email", "password"],
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "displayName": {"type": "string"}
            }
        },
        "login.Request": {
            "type": "object",
            "required": ["login", "password"],
            "properties": {
                "login": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "paymentcreate.Request": {
            "type": "object",
            "required": ["planId"],
            "properties": {"planId": {"type": "string", "example": "pro"}}
        },
        "admin.RoleRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {"role": {"type": "string", "enum": ["developer", "admin"]}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo содержит метаданные описания API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "finportal API",
	Description:      "Портал разработчика банковского API с платной подпиской",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
