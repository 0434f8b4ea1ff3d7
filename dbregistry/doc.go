// Package dbregistry provides a registry and lifecycle manager for one or more
// independent relational-database connection pools inside a single process.
//
// Application code addresses a database by logical name, obtains a transactional
// unit of work against it, and queries aggregate health, without each call site
// re-implementing pool configuration, session scoping, or error containment.
//
// Key types:
//   - Config: immutable description of how to reach and tune one database
//   - Registry: mapping from logical name to (config, session factory) with
//     setup/shutdown lifecycle, scoped session acquisition, and health aggregation
//   - Session / SessionFactory: the unit-of-work contract implemented by the
//     engine adapters (see the postgresengine package)
//
// Common usage pattern:
//
//	registry, _ := dbregistry.NewRegistry(
//		func(ctx context.Context, cfg dbregistry.Config) (dbregistry.SessionFactory, error) {
//			return postgresengine.Open(ctx, cfg)
//		},
//	)
//
//	err := registry.SetupAll(ctx, map[string]dbregistry.Config{
//		"billing":   dbregistry.NewConfig(billingDSN),
//		"reporting": dbregistry.NewConfig(reportingDSN),
//	})
//
//	err = registry.WithSession(ctx, "billing", func(ctx context.Context, s dbregistry.Session) error {
//		_, execErr := s.Exec(ctx, "INSERT INTO invoices ...")
//		if execErr != nil {
//			return execErr
//		}
//		return s.Commit(ctx)
//	})
//
//	defer func() { _ = registry.Shutdown() }()
//
// The registry provides no cross-database atomicity: each database's unit of
// work is independent. Query building, migrations, and ORM concerns live in
// the layers around this one.
package dbregistry
