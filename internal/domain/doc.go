// Package domain содержит основные сущности attendance-bridge.
//
// Сущности:
//   - Controller — управляемый consumer одной очереди (draft/running/stopped)
//   - LogEntry   — журнальная запись одного входящего сообщения и её
//     состояние (new/success/fail)
//
// Здесь же находится нормализация datetime-полей payload'а —
// приведение произвольных форматов к каноничному UTC без таймзоны.
package domain
