package models

// Sentinel project IDs used when no real project applies. Tasks created from
// chat shorthand without a project tag land in one of these.
const (
	ProjectUnassigned     = "unassigned"
	ProjectDelegatePrefix = "from-" // from-<delegate> for shared-inbox sends
)

// Project is a named grouping of tasks. Deleting a project cascades to
// every task referencing it.
type Project struct {
	ID   string `bson:"id" json:"id" yaml:"id"`
	Name string `bson:"name" json:"name" yaml:"name"`
}

// OwnerPointer is the persisted record that maps "the owner" to an opaque
// identity, so viewer sessions can find which collections to subscribe to
// without the owner's uid being hardcoded. Written on every owner sign-in.
type OwnerPointer struct {
	ID        string `bson:"_id" json:"id"` // fixed key, single document
	OwnerUID  string `bson:"ownerUid" json:"ownerUid"`
	UpdatedAt int64  `bson:"updatedAt" json:"updatedAt"`
}

// ViewerRegistration records a viewer uid that has attached to the owner's
// data, mirroring the allow-list grant at the store level.
type ViewerRegistration struct {
	ID        string `bson:"_id" json:"id"` // viewer uid
	OwnerUID  string `bson:"ownerUid" json:"ownerUid"`
	Email     string `bson:"email" json:"email"`
	CreatedAt int64  `bson:"createdAt" json:"createdAt"`
}
