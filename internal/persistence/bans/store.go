package bans

// Store is the ban list shared by the world and the admin surfaces.
type Store interface {
	IsBanned(ip string) bool
	Ban(ip, reason string) error
	Remove(ip string) (bool, error)
	List() []Entry
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*Memory)(nil)
)
