package cache

import "context"

// Tags used by the dashboard domains. Invalidation by one of these clears
// every entry a domain wrote, regardless of logical key.
const (
	TagMenus         = "menus"
	TagProductions   = "productions"
	TagDistributions = "distributions"
	TagInventory     = "inventory"
	TagEmployees     = "employees"
	TagDashboard     = "dashboard"
)

// preset fixes the (logical key, ttl class, tag set) triple for one domain.
// Presets are pure configuration over the generic Set/Get/Warm path.
type preset struct {
	key  string
	opts Options
}

var (
	presetMenus         = preset{key: "menus", opts: Options{TTL: TTLMedium, Tags: []string{TagMenus}}}
	presetProductions   = preset{key: "productions", opts: Options{TTL: TTLShort, Tags: []string{TagProductions}}}
	presetDistributions = preset{key: "distributions", opts: Options{TTL: TTLShort, Tags: []string{TagDistributions}}}
	presetInventory     = preset{key: "inventory", opts: Options{TTL: TTLMedium, Tags: []string{TagInventory}}}
	presetEmployees     = preset{key: "employees", opts: Options{TTL: TTLLong, Tags: []string{TagEmployees}}}
	presetDashboard     = preset{key: "dashboard-stats", opts: Options{TTL: TTLShort, Tags: []string{TagDashboard}}}
)

func (c *Manager) setPreset(ctx context.Context, p preset, tenantID string, data any) bool {
	return c.Set(ctx, p.key, data, tenantID, p.opts)
}

func (c *Manager) getPreset(ctx context.Context, p preset, tenantID string, dest any) bool {
	return c.Get(ctx, p.key, tenantID, dest)
}

func (c *Manager) warmPreset(ctx context.Context, p preset, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.Warm(ctx, p.key, tenantID, p.opts, loader)
}

// SetMenus caches the tenant's menu list.
func (c *Manager) SetMenus(ctx context.Context, tenantID string, data any) bool {
	return c.setPreset(ctx, presetMenus, tenantID, data)
}

// GetMenus reads the tenant's cached menu list into dest.
func (c *Manager) GetMenus(ctx context.Context, tenantID string, dest any) bool {
	return c.getPreset(ctx, presetMenus, tenantID, dest)
}

// WarmMenus populates the menu cache from loader.
func (c *Manager) WarmMenus(ctx context.Context, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.warmPreset(ctx, presetMenus, tenantID, loader)
}

// SetProductions caches the tenant's production batches.
func (c *Manager) SetProductions(ctx context.Context, tenantID string, data any) bool {
	return c.setPreset(ctx, presetProductions, tenantID, data)
}

// GetProductions reads the tenant's cached production batches into dest.
func (c *Manager) GetProductions(ctx context.Context, tenantID string, dest any) bool {
	return c.getPreset(ctx, presetProductions, tenantID, dest)
}

// WarmProductions populates the production cache from loader.
func (c *Manager) WarmProductions(ctx context.Context, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.warmPreset(ctx, presetProductions, tenantID, loader)
}

// SetDistributions caches the tenant's distribution schedule.
func (c *Manager) SetDistributions(ctx context.Context, tenantID string, data any) bool {
	return c.setPreset(ctx, presetDistributions, tenantID, data)
}

// GetDistributions reads the tenant's cached distribution schedule into dest.
func (c *Manager) GetDistributions(ctx context.Context, tenantID string, dest any) bool {
	return c.getPreset(ctx, presetDistributions, tenantID, dest)
}

// WarmDistributions populates the distribution cache from loader.
func (c *Manager) WarmDistributions(ctx context.Context, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.warmPreset(ctx, presetDistributions, tenantID, loader)
}

// SetInventory caches the tenant's ingredient inventory.
func (c *Manager) SetInventory(ctx context.Context, tenantID string, data any) bool {
	return c.setPreset(ctx, presetInventory, tenantID, data)
}

// GetInventory reads the tenant's cached inventory into dest.
func (c *Manager) GetInventory(ctx context.Context, tenantID string, dest any) bool {
	return c.getPreset(ctx, presetInventory, tenantID, dest)
}

// WarmInventory populates the inventory cache from loader.
func (c *Manager) WarmInventory(ctx context.Context, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.warmPreset(ctx, presetInventory, tenantID, loader)
}

// SetEmployees caches the tenant's employee roster.
func (c *Manager) SetEmployees(ctx context.Context, tenantID string, data any) bool {
	return c.setPreset(ctx, presetEmployees, tenantID, data)
}

// GetEmployees reads the tenant's cached employee roster into dest.
func (c *Manager) GetEmployees(ctx context.Context, tenantID string, dest any) bool {
	return c.getPreset(ctx, presetEmployees, tenantID, dest)
}

// WarmEmployees populates the employee cache from loader.
func (c *Manager) WarmEmployees(ctx context.Context, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.warmPreset(ctx, presetEmployees, tenantID, loader)
}

// SetDashboardStats caches the tenant's dashboard aggregates.
func (c *Manager) SetDashboardStats(ctx context.Context, tenantID string, data any) bool {
	return c.setPreset(ctx, presetDashboard, tenantID, data)
}

// GetDashboardStats reads the tenant's cached dashboard aggregates into dest.
func (c *Manager) GetDashboardStats(ctx context.Context, tenantID string, dest any) bool {
	return c.getPreset(ctx, presetDashboard, tenantID, dest)
}

// WarmDashboardStats populates the dashboard aggregates from loader.
func (c *Manager) WarmDashboardStats(ctx context.Context, tenantID string, loader func(ctx context.Context) (any, error)) bool {
	return c.warmPreset(ctx, presetDashboard, tenantID, loader)
}
