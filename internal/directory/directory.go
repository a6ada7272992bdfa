package directory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Directory answers which extensions belong to an owner and who sits
// behind each one. It is read-only lookup plumbing in front of the
// PJSIP endpoint tables; the status engine itself never touches the
// database except through the realtime channel.
type Directory struct {
	db     *pgxpool.Pool
	logger *zap.Logger

	mu    sync.RWMutex
	owner map[string]string // extension → owner id
}

type AgentInfo struct {
	Extension   string `json:"extension"`
	AgentID     string `json:"agentId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
}

func New(db *pgxpool.Pool, logger *zap.Logger) *Directory {
	return &Directory{
		db:     db,
		logger: logger,
		owner:  make(map[string]string),
	}
}

// ExtensionsByOwner returns the dialable extensions registered to an
// owner account.
func (d *Directory) ExtensionsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := d.db.Query(ctx, `
		SELECT id
		FROM ast_ps_endpoints
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extensions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		extensions = append(extensions, id)
	}
	return extensions, rows.Err()
}

// OwnerOf resolves the owner of an extension, caching hits. Unknown
// extensions resolve to "".
func (d *Directory) OwnerOf(ctx context.Context, extension string) string {
	if extension == "" {
		return ""
	}

	d.mu.RLock()
	owner, ok := d.owner[extension]
	d.mu.RUnlock()
	if ok {
		return owner
	}

	err := d.db.QueryRow(ctx,
		`SELECT owner_id FROM ast_ps_endpoints WHERE id = $1`,
		extension,
	).Scan(&owner)
	if err != nil {
		return ""
	}

	d.mu.Lock()
	d.owner[extension] = owner
	d.mu.Unlock()
	return owner
}

// AgentsByExtensions returns display info for the given extensions,
// scoped to one owner.
func (d *Directory) AgentsByExtensions(ctx context.Context, ownerID string, extensions []string) ([]AgentInfo, error) {
	if len(extensions) == 0 {
		return []AgentInfo{}, nil
	}

	rows, err := d.db.Query(ctx, `
		SELECT u.sipno, u.id, u.first_name, u.last_name
		FROM users u
		WHERE u.sipno = ANY($1) AND u.owner_id = $2
	`, extensions, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]AgentInfo, 0, len(extensions))
	for rows.Next() {
		var a AgentInfo
		if err := rows.Scan(&a.Extension, &a.AgentID, &a.FirstName, &a.LastName); err != nil {
			d.logger.Warn("agent row scan failed", zap.Error(err))
			continue
		}
		a.DisplayName = a.FirstName + " " + a.LastName
		agents = append(agents, a)
	}
	return agents, rows.Err()
}
