package workflow

// Tracked хранит подтверждённое хранилищем значение поля и, возможно,
// предложенное пользователем значение, которое ещё не подтверждено.
type Tracked[T comparable] struct {
	committed  T
	pending    T
	hasPending bool
}

// Committed создаёт поле без ожидающего значения
func Committed[T comparable](v T) Tracked[T] {
	return Tracked[T]{committed: v}
}

// Propose запоминает значение, отправляемое в хранилище
func (t *Tracked[T]) Propose(v T) {
	t.pending = v
	t.hasPending = true
}

// Commit фиксирует подтверждённое значение и снимает ожидание
func (t *Tracked[T]) Commit(v T) {
	var zero T
	t.committed = v
	t.pending = zero
	t.hasPending = false
}

// Revert отбрасывает ожидающее значение
func (t *Tracked[T]) Revert() {
	t.Commit(t.committed)
}

// Sync обновляет подтверждённое значение из свежего снимка, не трогая ожидающее
func (t *Tracked[T]) Sync(v T) {
	t.committed = v
}

// Value возвращает подтверждённое значение
func (t Tracked[T]) Value() T {
	return t.committed
}

// Pending возвращает ожидающее значение, если оно есть
func (t Tracked[T]) Pending() (T, bool) {
	return t.pending, t.hasPending
}

// Displayed возвращает то, что видит пользователь: ожидающее значение, если оно есть
func (t Tracked[T]) Displayed() T {
	if t.hasPending {
		return t.pending
	}
	return t.committed
}
