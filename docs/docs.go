// Package docs registers the Swagger specification served at /swagger/*any.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "https://github.com/guttosm/finfetch",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/guttosm/finfetch",
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
        "/api/v1/screen": {
            "get": {
                "description": "Collects daily history from the configured providers, merges it and computes screening metrics per symbol",
                "produces": ["application/json", "text/csv"],
                "tags": ["screening"],
                "summary": "Screen symbols",
                "parameters": [
                    {"type": "string", "example": "AAPL,MSFT", "description": "Comma separated tickers", "name": "symbols", "in": "query", "required": true},
                    {"type": "string", "description": "Start date YYYY-MM-DD", "name": "start", "in": "query"},
                    {"type": "string", "description": "End date YYYY-MM-DD (defaults to last trading day)", "name": "end", "in": "query"},
                    {"type": "integer", "description": "Calendar-day lookback when start is omitted", "name": "days", "in": "query"},
                    {"type": "boolean", "description": "Order by opportunity score", "name": "rank", "in": "query"},
                    {"type": "string", "example": "yahoo,polygon", "description": "Comma separated provider subset", "name": "sources", "in": "query"},
                    {"type": "boolean", "description": "Store the run", "name": "persist", "in": "query"},
                    {"enum": ["json", "csv"], "type": "string", "description": "json or csv", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ScreenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/sources": {
            "get": {
                "description": "Registered market data providers in conflict priority order",
                "produces": ["application/json"],
                "tags": ["screening"],
                "summary": "List providers",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.SourceResponse"}}}
                }
            }
        },
        "/api/v1/runs": {
            "get": {
                "description": "Returns the most recent persisted runs",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List screening runs",
                "parameters": [
                    {"type": "integer", "description": "Maximum runs to return (default 20)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.RunSummaryResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/runs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get a screening run",
                "parameters": [
                    {"type": "string", "description": "Run id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "description": "Always returns OK if the service is running",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Returns ready if every configured dependency (postgres, redis) is reachable",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid start, expected YYYY-MM-DD"},
                "details": {"type": "string"},
                "kind": {"type": "string", "example": "invalid_date_range"},
                "timestamp": {"type": "string"}
            }
        },
        "dto.ScreeningResultResponse": {
            "type": "object",
            "properties": {
                "symbol": {"type": "string", "example": "AAPL"},
                "annualized_return": {"type": "number", "example": 14.87},
                "sharpe_ratio": {"type": "number", "example": 0.91},
                "percent_from_high": {"type": "number", "example": -5.3},
                "volatility": {"type": "number", "example": 27.18},
                "max_drawdown": {"type": "number", "example": -33.4},
                "opportunity_score": {"type": "number", "example": 0.72},
                "total_return": {"type": "number"},
                "current_price": {"type": "number"},
                "high_52w": {"type": "number"},
                "low_52w": {"type": "number"},
                "percent_from_low": {"type": "number"},
                "alpha": {"type": "number", "example": 3.1},
                "beta": {"type": "number", "example": 1.12},
                "rsi_14": {"type": "number", "example": 61.5},
                "sma_20": {"type": "number"},
                "sma_50": {"type": "number"},
                "volume_ratio": {"type": "number"},
                "data_quality": {"type": "number", "example": 0.98},
                "data_points": {"type": "integer", "example": 1258},
                "insufficient_data": {"type": "boolean"},
                "first_date": {"type": "string", "example": "2020-03-10"},
                "last_date": {"type": "string", "example": "2025-03-10"},
                "sources": {"type": "array", "items": {"type": "string"}}
            }
        },
        "dto.SourceOutcomeResponse": {
            "type": "object",
            "properties": {
                "source": {"type": "string", "example": "yahoo"},
                "ok": {"type": "boolean"},
                "points": {"type": "integer"},
                "kind": {"type": "string", "example": "source_unavailable"},
                "error": {"type": "string"},
                "elapsed_ms": {"type": "integer"}
            }
        },
        "dto.SymbolOutcomeResponse": {
            "type": "object",
            "properties": {
                "symbol": {"type": "string"},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/dto.SourceOutcomeResponse"}},
                "conflicts": {"type": "integer"},
                "dropped": {"type": "integer"},
                "aggregation_error": {"type": "string"}
            }
        },
        "dto.ScreenResponse": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "window_start": {"type": "string", "example": "2020-03-10"},
                "window_end": {"type": "string", "example": "2025-03-10"},
                "sources": {"type": "array", "items": {"type": "string"}},
                "benchmark": {"type": "string", "example": "SPY"},
                "ranked": {"type": "boolean"},
                "partial": {"type": "boolean"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/dto.ScreeningResultResponse"}},
                "outcomes": {"type": "array", "items": {"$ref": "#/definitions/dto.SymbolOutcomeResponse"}}
            }
        },
        "dto.RunSummaryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string", "example": "2025-03-10T18:30:00Z"},
                "window_start": {"type": "string"},
                "window_end": {"type": "string"},
                "symbols": {"type": "array", "items": {"type": "string"}},
                "ranked": {"type": "boolean"},
                "result_count": {"type": "integer"}
            }
        },
        "dto.RunResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string"},
                "window_start": {"type": "string"},
                "window_end": {"type": "string"},
                "symbols": {"type": "array", "items": {"type": "string"}},
                "ranked": {"type": "boolean"},
                "result_count": {"type": "integer"},
                "sources": {"type": "array", "items": {"type": "string"}},
                "results": {"type": "array", "items": {"$ref": "#/definitions/dto.ScreeningResultResponse"}}
            }
        },
        "dto.SourceResponse": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "yahoo"},
                "priority": {"type": "integer", "example": 1},
                "cached": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "finfetch API",
	Description:      "Multi-source equity history collection and screening service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
