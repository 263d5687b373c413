// Ошибки работы с состоянием.
//
// Rule 7: Возвращаются вверх по стеку, никаких panic.
// Поддерживают errors.Is() для проверки на верхних уровнях.
package state

import "fmt"

// ErrKeyNotFound возвращается когда ключ не найден в хранилище.
var ErrKeyNotFound = fmt.Errorf("key not found")

// ErrKeyReserved возвращается при попытке записать зарезервированный ключ.
//
// Зарезервированные ключи соответствуют типизированным полям CoreState
// (history, session, storage и др.) и меняются только через их методы.
var ErrKeyReserved = fmt.Errorf("key is reserved")

// ErrNilStorage возвращается когда архив снапшотов не сконфигурирован.
var ErrNilStorage = fmt.Errorf("storage not initialized")

// KeyNotFoundError — ошибка с контекстом ключа.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

// Is поддерживает errors.Is(err, ErrKeyNotFound).
func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// ReservedKeyError — ошибка с контекстом зарезервированного ключа.
type ReservedKeyError struct {
	Key string
}

func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("key is reserved: %s", e.Key)
}

// Is поддерживает errors.Is(err, ErrKeyReserved).
func (e *ReservedKeyError) Is(target error) bool {
	return target == ErrKeyReserved
}

// WrapKeyNotFound оборачивает отсутствующий ключ в типизированную ошибку.
func WrapKeyNotFound(key string) error {
	return &KeyNotFoundError{Key: key}
}

// WrapReservedKey оборачивает зарезервированный ключ в типизированную ошибку.
func WrapReservedKey(key string) error {
	return &ReservedKeyError{Key: key}
}
