// Package fingerprint выводит стабильный необратимый идентификатор клиента
// из сетевых метаданных запроса. Это эвристический сигнал для спам-фильтра,
// а не механизм аутентификации: общие сети и ротация клиентов его размывают.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Deriver вычисляет фингерпринты с фиксированной солью
type Deriver struct {
	salt []byte
}

// NewDeriver создает новый Deriver. Соль не обязательна, но без неё
// фингерпринты воспроизводимы между развертываниями.
func NewDeriver(salt string) *Deriver {
	return &Deriver{salt: []byte(salt)}
}

// Derive возвращает фингерпринт клиента по адресу источника и строке агента.
// Детерминирован и необратим (HMAC-SHA256). Возвращает ok=false только когда
// оба входа пусты - такой отчет считается несвязываемым.
func (d *Deriver) Derive(sourceAddr, clientAgent string) (string, bool) {
	if sourceAddr == "" && clientAgent == "" {
		return "", false
	}

	h := hmac.New(sha256.New, d.salt)
	h.Write([]byte(sourceAddr))
	h.Write([]byte{'|'})
	h.Write([]byte(clientAgent))
	return hex.EncodeToString(h.Sum(nil)), true
}
