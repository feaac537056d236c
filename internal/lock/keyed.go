// Package lock реализует мьютексы по строковому ключу для сериализации
// обработки сообщений в рамках одного инцидента. Сообщения для разных
// инцидентов идут полностью параллельно - глобальной блокировки нет.
package lock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex - набор мьютексов, создаваемых по требованию на ключ.
// Запись удаляется, когда последний держатель отпускает ключ.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex создает новый KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock блокирует ключ и возвращает функцию освобождения
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
