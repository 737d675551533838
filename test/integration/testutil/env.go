package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"showings/pkg/client"
)

const DefaultHealthCheckTimeout = 30 * time.Second

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
}

func NewTestEnv() *TestEnv {
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort)),
	}
}

// Setup connects to Mongo, empties the service collections and waits for the service to
// report healthy.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.ShowingClient, *client.LotClient) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	showings := client.NewShowingClient(e.ServerURL)
	if err := showings.WaitForHealthy(DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("service did not become healthy: %v", err)
	}
	return mongo, showings, client.NewLotClient(e.ServerURL)
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()
	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
