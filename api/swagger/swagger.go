package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Progression API",
        "description": "Mission progress, badges, levels, hours, streaks and leaderboards.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Missions", "description": "Activity completion and mission progress"},
        {"name": "Badges", "description": "Automatic awards and teacher evidence review"},
        {"name": "Hours", "description": "Idempotent hours ledger and CPD targets"},
        {"name": "Levels", "description": "Achievement levels"},
        {"name": "Streaks", "description": "Consecutive-day engagement"},
        {"name": "Leaderboard", "description": "Ranked standings"}
    ],
    "paths": {
        "/missions/{missionId}/activities/{activityId}/completion": {
            "post": {
                "tags": ["Missions"],
                "summary": "Mark a mission activity complete or incomplete",
                "parameters": [
                    {"name": "missionId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordActivityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Progress snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Mission or activity not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/missions/{missionId}/progress": {
            "get": {
                "tags": ["Missions"],
                "summary": "Get the caller's progress on one mission",
                "parameters": [
                    {"name": "missionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Mission progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/missions/progress": {
            "get": {
                "tags": ["Missions"],
                "summary": "List the caller's mission progress",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["NOT_STARTED", "IN_PROGRESS", "COMPLETED"]},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Progress rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/badges/{badgeId}/award": {
            "post": {
                "tags": ["Badges"],
                "summary": "Grant a badge to a learner",
                "parameters": [
                    {"name": "badgeId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AwardBadgeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Whether a new award was created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/badges/awards": {
            "get": {
                "tags": ["Badges"],
                "summary": "List the caller's approved badges",
                "responses": {
                    "200": {"description": "Approved awards", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/badges/submissions": {
            "get": {
                "tags": ["Badges"],
                "summary": "List badge submissions for review",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                    {"name": "userId", "in": "query", "type": "string"},
                    {"name": "badgeId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Submissions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Badges"],
                "summary": "Submit evidence for a teacher badge",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitBadgeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending submission created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Badge already approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/badges/submissions/{id}/review": {
            "post": {
                "tags": ["Badges"],
                "summary": "Approve or reject a badge submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewBadgeRequest"}}
                ],
                "responses": {
                    "204": {"description": "Reviewed"},
                    "403": {"description": "Reviewer owns the submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hours": {
            "post": {
                "tags": ["Hours"],
                "summary": "Credit hours for an activity",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordHoursRequest"}}
                ],
                "responses": {
                    "200": {"description": "Hours newly credited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hours/total": {
            "get": {
                "tags": ["Hours"],
                "summary": "Total the caller's hours",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "description": "Inclusive start, RFC3339 or YYYY-MM-DD"},
                    {"name": "to", "in": "query", "type": "string", "description": "Exclusive end, RFC3339 or YYYY-MM-DD"}
                ],
                "responses": {
                    "200": {"description": "Total hours", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hours/recent": {
            "get": {
                "tags": ["Hours"],
                "summary": "List the caller's latest ledger entries",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Ledger entries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hours/cpd": {
            "get": {
                "tags": ["Hours"],
                "summary": "Annual CPD progress for the caller",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "CPD summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/levels/me": {
            "get": {
                "tags": ["Levels"],
                "summary": "Get the caller's level",
                "responses": {
                    "200": {"description": "Level record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/levels/me/recalculate": {
            "post": {
                "tags": ["Levels"],
                "summary": "Recompute the caller's level",
                "responses": {
                    "200": {"description": "Level record and whether it rose", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/streaks/me": {
            "get": {
                "tags": ["Streaks"],
                "summary": "Get the caller's current streak",
                "responses": {
                    "200": {"description": "Streak summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/streaks/engagement": {
            "post": {
                "tags": ["Streaks"],
                "summary": "Log an engagement event",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordEngagementRequest"}}
                ],
                "responses": {
                    "204": {"description": "Recorded"}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Ranked leaderboard page",
                "security": [],
                "parameters": [
                    {"name": "metric", "in": "query", "required": true, "type": "string", "enum": ["BADGES_EARNED", "HOURS_LOGGED", "MISSIONS_COMPLETED", "CHALLENGES_WON"]},
                    {"name": "range", "in": "query", "type": "string", "enum": ["WEEKLY", "MONTHLY", "CURRENT_SEMESTER", "ALL_TIME"]},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Leaderboard; meta.cache_hit reports cache use", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/me": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "The caller's rank on a leaderboard",
                "parameters": [
                    {"name": "metric", "in": "query", "required": true, "type": "string"},
                    {"name": "range", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "User position", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RecordActivityRequest": {
            "type": "object",
            "properties": {"completed": {"type": "boolean"}}
        },
        "AwardBadgeRequest": {
            "type": "object",
            "required": ["learnerId"],
            "properties": {
                "learnerId": {"type": "string"},
                "sourceRef": {"type": "string"}
            }
        },
        "SubmitBadgeRequest": {
            "type": "object",
            "required": ["badgeId"],
            "properties": {
                "badgeId": {"type": "string"},
                "evidenceLink": {"type": "string"},
                "evidenceFiles": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"}
            }
        },
        "ReviewBadgeRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "reviewerNotes": {"type": "string"}
            }
        },
        "RecordHoursRequest": {
            "type": "object",
            "required": ["activityType", "activityId"],
            "properties": {
                "activityType": {"type": "string", "enum": ["WORKSHOP", "EXTERNAL_TRAINING"]},
                "activityId": {"type": "string"},
                "hours": {"type": "number"}
            }
        },
        "RecordEngagementRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "kind": {"type": "string", "enum": ["ACTIVITY_COMPLETED", "LOGIN", "PAGE_VISIT", "HOURS_RECORDED"]}
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
