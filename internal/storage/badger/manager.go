package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
)

// Manager aggregates all Badger-backed stores behind one lifecycle
type Manager struct {
	db            *BadgerDB
	tenants       interfaces.TenantStorage
	settings      interfaces.SettingsStorage
	results       interfaces.ResultStorage
	leases        interfaces.LeaseStorage
	snapshots     interfaces.SnapshotStorage
	notifications interfaces.NotificationStorage
}

// NewManager opens the database and wires all stores
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &Manager{
		db:            db,
		tenants:       NewTenantStorage(db, logger),
		settings:      NewSettingsStorage(db, logger),
		results:       NewResultStorage(db, logger),
		leases:        NewLeaseStorage(db, logger),
		snapshots:     NewSnapshotStorage(db, logger),
		notifications: NewNotificationStorage(db, logger),
	}, nil
}

// DB returns the underlying connection, used by the event bus which shares
// the same database directory
func (m *Manager) DB() *BadgerDB {
	return m.db
}

func (m *Manager) Tenants() interfaces.TenantStorage { return m.tenants }

func (m *Manager) Settings() interfaces.SettingsStorage { return m.settings }

func (m *Manager) Results() interfaces.ResultStorage { return m.results }

func (m *Manager) Leases() interfaces.LeaseStorage { return m.leases }

func (m *Manager) Snapshots() interfaces.SnapshotStorage { return m.snapshots }

func (m *Manager) Notifications() interfaces.NotificationStorage { return m.notifications }

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
