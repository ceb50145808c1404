// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free from
// ORM concerns; each model converts with ToDomain / FromDomain.
//
// Tables:
// - shops: storefronts keyed by ERP seller ID
// - sales: one row per shop and day, keyed by (seller_id, date)
// - exchange_rates: monthly rates keyed by (month, currency)
// - sync_runs: history of synchronization runs
//
// Columns are declared so that the same models work on PostgreSQL and SQLite.
package models
