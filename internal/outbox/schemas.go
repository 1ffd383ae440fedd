package outbox

const walkLoggedSchema = `{
  "type": "object",
  "title": "WalkLogged",
  "properties": {
    "walk_id": {"type": "string"},
    "user_id": {"type": "string"},
    "miles": {"type": "number", "minimum": 0},
    "notes": {"type": "string"},
    "source": {"type": "string", "enum": ["manual", "strava"]},
    "external_id": {"type": "string"},
    "walked_at": {"type": "string", "format": "date-time"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["walk_id", "user_id", "miles", "source", "walked_at", "occurred_at"],
  "additionalProperties": false
}`

const walkUpdatedSchema = `{
  "type": "object",
  "title": "WalkUpdated",
  "properties": {
    "walk_id": {"type": "string"},
    "user_id": {"type": "string"},
    "miles": {"type": "number", "minimum": 0},
    "notes": {"type": "string"},
    "external_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["walk_id", "user_id", "miles", "occurred_at"],
  "additionalProperties": false
}`

const walkDeletedSchema = `{
  "type": "object",
  "title": "WalkDeleted",
  "properties": {
    "walk_id": {"type": "string"},
    "user_id": {"type": "string"},
    "source": {"type": "string", "enum": ["manual", "strava"]},
    "external_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["walk_id", "user_id", "source", "occurred_at"],
  "additionalProperties": false
}`
