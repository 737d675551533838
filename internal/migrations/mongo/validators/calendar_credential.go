package validators

import "go.mongodb.org/mongo-driver/bson"

// CalendarCredentialValidator keys documents by owner id. Token fields hold sealed values.
var CalendarCredentialValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "refresh_token", "updated_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":           bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"refresh_token": bson.M{"bsonType": "string", "minLength": 1},
			"access_token":  bson.M{"bsonType": "string"},
			"expiry":        bson.M{"bsonType": "date"},
			"calendar_id":   bson.M{"bsonType": "string", "maxLength": 256},
			"updated_at":    bson.M{"bsonType": "date"},
		},
	},
}
