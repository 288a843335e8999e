package graphdb

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Driver is a connection to the graph database holding relationships and quotas.
type Driver struct {
	driver   neo4j.DriverWithContext
	database string
}

func Connect(ctx context.Context, uri, username, password, database string) (*Driver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", uri, err)
	}
	log.Printf("Connected to Neo4j at %s", uri)
	return &Driver{driver: driver, database: database}, nil
}

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Driver) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database, AccessMode: mode})
}

// BuildIndices creates the uniqueness constraints the backend relies on.
func (d *Driver) BuildIndices(ctx context.Context) error {
	for _, q := range schemaQueries {
		_, err := neo4j.ExecuteQuery(ctx, d.driver, q, nil, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(d.database))
		if err != nil {
			return fmt.Errorf("failed to apply schema %q: %w", q, err)
		}
	}
	return nil
}
