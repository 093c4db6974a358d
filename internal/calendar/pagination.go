package calendar

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor - позиция keyset-пагинации: последняя отданная запись (fecha, id).
type Cursor struct {
	Fecha time.Time `json:"f"`
	ID    string    `json:"i"`
}

// Encode возвращает непрозрачную строку для клиента.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(Cursor{Fecha: c.Fecha.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor разбирает строку, полученную от Encode. Пустая строка - начало списка.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.Fecha.IsZero() {
		return nil, ErrInvalidCursor
	}
	c.Fecha = c.Fecha.UTC()
	return &c, nil
}

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items      []T    // элементы на текущей странице
	PageSize   int    // запрошенный размер страницы
	HasNext    bool   // есть ли ещё данные
	NextCursor string // пусто, если данных больше нет
}

// NormalizePageSize подставляет дефолт и ограничивает сверху.
func NormalizePageSize(size, def int) int {
	if def <= 0 {
		def = DefaultPageSize
	}
	if size <= 0 {
		size = def
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return size
}

// CutPage строит страницу из выборки, запрошенной с лимитом pageSize+1.
// Лишний элемент означает, что есть следующая страница; курсор указывает
// на последний отданный элемент.
func CutPage[T any](rows []T, pageSize int, cursorOf func(T) Cursor) Page[T] {
	p := Page[T]{PageSize: pageSize}
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		p.HasNext = true
	}
	p.Items = rows
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.HasNext && len(rows) > 0 {
		p.NextCursor = cursorOf(rows[len(rows)-1]).Encode()
	}
	return p
}
