package outbox

const activityRecordedSchema = `{
  "type": "object",
  "title": "DealActivityRecorded",
  "properties": {
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "deal_id": {"type": "string"},
    "user_id": {"type": ["string", "null"]},
    "activity_type": {"type": "string"},
    "entity_type": {"type": "string"},
    "entity_id": {"type": "string"},
    "metadata": {"type": "object"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "tenant_id", "deal_id", "activity_type", "created_at"],
  "additionalProperties": false
}`

const dealTouchedSchema = `{
  "type": "object",
  "title": "DealTouched",
  "properties": {
    "tenant_id": {"type": "string"},
    "deal_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "deal_id", "occurred_at"],
  "additionalProperties": false
}`
