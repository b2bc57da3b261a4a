// Package mq реализует потребление сообщений из RabbitMQ.
//
// Структура:
//   - transport.go  — абстракция сетевого слоя AMQP (+ production-реализация)
//   - supervisor.go — жизненный цикл одного соединения: connect → channel →
//     queue declare → consume, ack каждой доставки
//   - runner.go     — цикл переподключения с линейным backoff
//   - registry.go   — реестр живых consumer'ов, не более одного на очередь
//
// Супервизор одноразовый: после обрыва соединения экземпляр выбрасывается,
// runner строит новый. Решение о повторе принимает только runner.
package mq
