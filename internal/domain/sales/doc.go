// Package sales contains the Sales bounded context of the seller dashboard.
// It models the data pulled from the Lingxing ERP and stored for reporting.
//
// Key concepts:
//   - Shop: a marketplace storefront (seller) registered in the ERP
//   - Sale: the daily sales figures of one shop, keyed by (seller, date)
//   - ExchangeRate: the monthly rate of a currency against the base currency (CNY)
//   - Month: the unit of synchronization; data is fetched and upserted month by month
//   - SyncRun: the record of one synchronization execution
//
// Design Pattern: Ports & Adapters
//   - Repository and SalesSource ports are defined here in the domain layer
//   - Adapters (GORM repositories, the Lingxing client) live in the infrastructure layer
package sales
