// Package cli — команды bridge-cli.
//
// Команды работают через admin HTTP API демона:
//   - controller — управление consumer controller'ами
//   - log        — просмотр журнала операций и ручной retry
//   - purge      — retention-свип success-записей
package cli
