// Package model defines the shared market data types.
//
// Conventions:
//   - Prices and quantities: decimal.Decimal, parsed from provider
//     strings so exchange precision survives end to end
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Symbols: uppercase trading pairs (e.g., "BTCUSDT")
package model
