// Package oplog реализует журнал операций и его state machine.
//
// Каждое входящее сообщение порождает одну журнальную запись в статусе
// new; Execute детерминированно переводит её в success или fail,
// выполняя create/write против внешнего хранилища. Записи в fail
// повторяются вручную (Retry), success-записи старше окна хранения
// удаляет retention-свип.
package oplog
