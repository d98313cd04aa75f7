package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
)

// Sink - пишущий конец одного живого соединения.
type Sink interface {
	// Send ставит текстовый кадр в очередь. Не должен блокироваться.
	Send(frame []byte) error
	// Writable сообщает, принимает ли сокет еще кадры.
	Writable() bool
	// Close дописывает очередь и закрывает соединение с указанным кодом.
	Close(code int, reason string)
}

// Binding связывает аутентифицированное соединение с пользователем.
type Binding struct {
	ConnectionID string
	Principal    auth.Principal
}

type entry struct {
	sink      Sink
	principal *auth.Principal
}

// Registry хранит живые соединения и тех, кто прошел аутентификацию.
// Поиск по пользователю - полный перебор, соединений на процесс немного.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*entry),
		newID: func() string { return "conn-" + uuid.NewString() },
	}
}

// Register добавляет неаутентифицированное соединение и возвращает его id.
func (r *Registry) Register(sink Sink) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = r.newID()
	}
	r.conns[id] = &entry{sink: sink}
	return id
}

// Authenticate привязывает connID к p. Неизвестные (уже закрытые) id игнорируются.
func (r *Registry) Authenticate(connID string, p auth.Principal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	e.principal = &p
	return true
}

// Principal возвращает пользователя, привязанного к connID.
func (r *Registry) Principal(connID string) (auth.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok || e.principal == nil {
		return auth.Principal{}, false
	}
	return *e.principal, true
}

// Unregister удаляет connID. Повторный вызов ничего не делает.
func (r *Registry) Unregister(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return false
	}
	delete(r.conns, connID)
	return true
}

func (r *Registry) sink(connID string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.sink, true
}

// ConnectionsForUser возвращает открытые соединения userID.
func (r *Registry) ConnectionsForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, e := range r.conns {
		if e.principal != nil && e.principal.UserID == userID && e.sink.Writable() {
			ids = append(ids, id)
		}
	}
	return ids
}

// AllOpenConnections возвращает все соединения, в которые еще можно писать,
// с аутентификацией или без.
func (r *Registry) AllOpenConnections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id, e := range r.conns {
		if e.sink.Writable() {
			ids = append(ids, id)
		}
	}
	return ids
}

// AllAuthenticatedConnections возвращает Binding для каждого открытого аутентифицированного соединения.
func (r *Registry) AllAuthenticatedConnections() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Binding, 0, len(r.conns))
	for id, e := range r.conns {
		if e.principal != nil && e.sink.Writable() {
			out = append(out, Binding{ConnectionID: id, Principal: *e.principal})
		}
	}
	return out
}

// Len возвращает число зарегистрированных соединений.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
