package validators

import "go.mongodb.org/mongo-driver/bson"

var AvailabilityRuleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"lot_id", "start_time", "end_time", "kind", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":        bson.M{"bsonType": "objectId"},
			"lot_id":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"start_time": bson.M{"bsonType": "date"},
			"end_time":   bson.M{"bsonType": "date"},
			"kind": bson.M{
				"bsonType": "string",
				"enum":     []string{"OPEN", "BLOCKED"},
			},
			"reason":     bson.M{"bsonType": "string", "maxLength": 300},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
