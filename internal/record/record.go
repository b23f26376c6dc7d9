// Package record defines the entity types tracked by the inventory system
// and the identity scheme shared by the local store and the remote API.
package record

import (
	"fmt"
	"math/rand"
	"time"
)

// Collection names the entity collections known to both the local store
// and the remote table API. Collection names appear verbatim in request
// paths, so they must match the remote side exactly.
type Collection string

const (
	Assets        Collection = "assets"
	Departments   Collection = "departments"
	Maintenance   Collection = "maintenance"
	InventoryLogs Collection = "inventory_logs"
)

// AllCollections lists every syncable collection in the order they are
// refreshed during a full fetch-and-merge pass.
var AllCollections = []Collection{Assets, Departments, Maintenance, InventoryLogs}

// Valid reports whether c is a known syncable collection.
func (c Collection) Valid() bool {
	switch c {
	case Assets, Departments, Maintenance, InventoryLogs:
		return true
	}
	return false
}

// Action identifies a mutation kind flowing through the sync pipeline.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a recognized mutation action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// NewID generates a record identity: millisecond timestamp plus a random
// base36 suffix. IDs are generated client-side at creation time and are
// never reused, even after the record is deleted.
func NewID() string {
	return fmt.Sprintf("id_%d_%s", time.Now().UnixMilli(), randomSuffix(9))
}

func randomSuffix(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// DateOnly formats t the way the remote API stores bare dates.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
