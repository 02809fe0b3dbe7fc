// Package mongo connects meterd to MongoDB for deployments that keep usage
// records in a document store instead of PostgreSQL or Redis. The collection
// returned by Collection is passed to usage.NewMongoStore.
package mongo
