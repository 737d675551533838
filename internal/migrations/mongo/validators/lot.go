package validators

import "go.mongodb.org/mongo-driver/bson"

var LotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"park_id", "owner_id", "name", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":      bson.M{"bsonType": "objectId"},
			"park_id":  bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"owner_id": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"name":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
			"address":  bson.M{"bsonType": "string", "maxLength": 300},
			"time_zone": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
