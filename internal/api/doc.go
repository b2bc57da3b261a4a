// Package api — admin HTTP API моста.
//
// Операционные точки входа: управление consumer controller'ами
// (start/stop), просмотр журнала операций, ручной retry записи и
// запуск retention-свипа. Бизнес-поверхности здесь нет.
package api
