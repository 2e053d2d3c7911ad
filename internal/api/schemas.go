package api

const submitDisputeSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["customer_id", "transaction_id", "dispute_type", "amount", "currency_code", "reason"],
  "properties": {
    "customer_id": {"type": "string", "minLength": 1, "maxLength": 64},
    "transaction_id": {"type": "string", "minLength": 1, "maxLength": 64},
    "dispute_type": {"type": "string", "enum": ["POS", "ATM"]},
    "amount": {"type": "number", "exclusiveMinimum": 0},
    "currency_code": {"type": "string", "pattern": "^[A-Z]{3}$"},
    "transaction_date": {"type": "string", "format": "date-time"},
    "reason": {"type": "string", "minLength": 1, "maxLength": 2000}
  }
}`

const uploadDocumentSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["filename", "category"],
  "properties": {
    "filename": {"type": "string", "minLength": 1, "maxLength": 255},
    "category": {"type": "string", "enum": ["communication", "product_evidence", "receipt"]},
    "actor_id": {"type": "string", "maxLength": 64}
  }
}`
