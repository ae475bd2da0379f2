package report

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CaseRecord is a case document as stored in the reports collection.
//
// Stored documents have no enforced schema. Known top-level fields are
// typed when the stored value has the expected type; a value of any other
// type stays in Extra under its own key, as does every unknown field, so a
// matching document always decodes.
type CaseRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	CaseNumber string             `bson:"caseNumber"`
	Remark     string             `bson:"remark,omitempty"`
	DeviceName string             `bson:"deviceName,omitempty"`
	SMS        any                `bson:"sms,omitempty"`
	Calls      any                `bson:"calls,omitempty"`
	Contacts   any                `bson:"contacts,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt,omitempty"`
	Extra      bson.M             `bson:",inline"`
}

// Result is a located record together with the database it came from.
type Result struct {
	Database string      `json:"database"`
	Report   *CaseRecord `json:"report"`
}

// Fields returns the record as a flat map keyed by stored field names.
// A set typed field wins over an Extra entry of the same name.
func (c *CaseRecord) Fields() map[string]any {
	m := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		m[k] = v
	}
	setString := func(key, v string) {
		if _, ok := m[key]; !ok || v != "" {
			m[key] = v
		}
	}

	if !c.ID.IsZero() {
		m["_id"] = c.ID.Hex()
	}
	setString("caseNumber", c.CaseNumber)
	setString("remark", c.Remark)
	setString("deviceName", c.DeviceName)
	m["sms"] = c.SMS
	m["calls"] = c.Calls
	m["contacts"] = c.Contacts
	if !c.CreatedAt.IsZero() {
		m["createdAt"] = c.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func (c *CaseRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields())
}

// UnmarshalJSON reads the flat shape produced by MarshalJSON.
func (c *CaseRecord) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	c.fromMap(m)
	return nil
}

// UnmarshalBSON decodes a stored document without failing on field types.
func (c *CaseRecord) UnmarshalBSON(data []byte) error {
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(data))
	if err != nil {
		return err
	}
	dec.DefaultDocumentM()

	var m bson.M
	if err := dec.Decode(&m); err != nil {
		return err
	}
	c.fromMap(m)
	return nil
}

func (c *CaseRecord) fromMap(m map[string]any) {
	*c = CaseRecord{}

	if id, ok := objectID(m["_id"]); ok {
		c.ID = id
		delete(m, "_id")
	}
	if t, ok := timestamp(m["createdAt"]); ok {
		c.CreatedAt = t
		delete(m, "createdAt")
	}
	for key, dst := range map[string]*string{
		"caseNumber": &c.CaseNumber,
		"remark":     &c.Remark,
		"deviceName": &c.DeviceName,
	} {
		if s, ok := m[key].(string); ok {
			*dst = s
			delete(m, key)
		}
	}
	c.SMS = m["sms"]
	c.Calls = m["calls"]
	c.Contacts = m["contacts"]
	delete(m, "sms")
	delete(m, "calls")
	delete(m, "contacts")

	if len(m) > 0 {
		c.Extra = bson.M(m)
	}
}

func objectID(v any) (primitive.ObjectID, bool) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, true
	case string:
		oid, err := primitive.ObjectIDFromHex(id)
		return oid, err == nil
	}
	return primitive.NilObjectID, false
}

func timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC(), true
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
