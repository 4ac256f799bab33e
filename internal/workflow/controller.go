// Пакет workflow управляет состоянием кейсов одной сессии: владеет снимком
// списка, хранит ожидающие изменения статусов и реализует переход в published,
// который требует ссылку на сайт.
package workflow

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"CaseTracker/internal/model"
	"CaseTracker/internal/validation"
	"CaseTracker/internal/view"
)

// CaseService: операции над хранилищем, которые нужны контроллеру
type CaseService interface {
	List(ctx context.Context) ([]model.Case, error)
	ListFresh(ctx context.Context) ([]model.Case, error)
	Create(ctx context.Context, in model.CaseInput) (*model.Case, error)
	UpdateStatus(ctx context.Context, id string, u model.StatusUpdate) (*model.Case, error)
	Delete(ctx context.Context, id string) error
}

// Item: кейс в том виде, в каком его видит пользователь сессии.
// Case содержит подтверждённые значения, Pending* ещё не подтверждённые.
type Item struct {
	model.Case
	PendingPaymentStatus *model.PaymentStatus
	PendingProjectStatus *model.ProjectStatus
	AwaitingLink         bool
}

// Outcome: результат SetProjectStatus
type Outcome struct {
	Item Item
	// AwaitingLink: published отложен до ConfirmPublish, в хранилище ничего не записано
	AwaitingLink bool
}

// caseState: локальное состояние изменяемых полей одного кейса
type caseState struct {
	payment      Tracked[model.PaymentStatus]
	project      Tracked[model.ProjectStatus]
	awaitingLink bool
}

// caseLock: блокировка мутаций кейса; refs считает владельца и ожидающих,
// запись удаляется из карты, когда refs падает до нуля
type caseLock struct {
	mu   sync.Mutex
	refs int
}

// Controller принадлежит одной сессии. Мутации одного кейса выполняются
// строго последовательно, после каждой успешной мутации снимок перечитывается.
type Controller struct {
	svc      CaseService
	validate *validation.Validator
	now      func() time.Time

	mu       sync.Mutex
	snapshot []model.Case
	states   map[string]*caseState
	locks    map[string]*caseLock
	// номера обновлений: ответ старшего запроса не затирает более новый снимок
	issued  uint64
	applied uint64
}

// NewController создаёт контроллер с пустым снимком
func NewController(svc CaseService) *Controller {
	return &Controller{
		svc:      svc,
		validate: validation.New(),
		now:      time.Now,
		states:   make(map[string]*caseState),
		locks:    make(map[string]*caseLock),
	}
}

// ListCases перечитывает список и возвращает отфильтрованный и отсортированный вид.
// При ошибке снимок остаётся прежним.
func (c *Controller) ListCases(ctx context.Context, query string) ([]Item, error) {
	if err := c.refresh(ctx, c.svc.List); err != nil {
		return nil, err
	}
	return c.View(query), nil
}

// View строит вид из текущего снимка без обращения к хранилищу
func (c *Controller) View(query string) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	cases := view.Present(c.snapshot, query)
	items := make([]Item, 0, len(cases))
	for _, cs := range cases {
		items = append(items, c.itemLocked(cs))
	}
	return items
}

// Case возвращает кейс из текущего снимка
func (c *Controller) Case(id string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.findLocked(id)
	if !ok {
		return Item{}, false
	}
	return c.itemLocked(cs), true
}

// Find возвращает кейс с ожидающими изменениями. Кейса нет в снимке:
// снимок перечитывается, и только потом возвращается NotFound.
func (c *Controller) Find(ctx context.Context, id string) (Item, error) {
	cs, err := c.ensureKnown(ctx, id)
	if err != nil {
		return Item{}, err
	}
	return c.item(cs), nil
}

// CreateCase заполняет умолчания формы, создаёт кейс и обновляет снимок
func (c *Controller) CreateCase(ctx context.Context, in model.CaseInput) (*model.Case, error) {
	in.ApplyDefaults(model.DateOf(c.now()))
	created, err := c.svc.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.refreshAfterMutation(ctx)
	return created, nil
}

// SetPaymentStatus меняет статус оплаты. При ошибке показывается прежнее значение.
func (c *Controller) SetPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) (Item, error) {
	if err := c.validate.StatusUpdate(model.StatusUpdate{PaymentStatus: &status}); err != nil {
		return Item{}, err
	}
	unlock := c.lockCase(id)
	defer unlock()

	if _, err := c.ensureKnown(ctx, id); err != nil {
		return Item{}, err
	}
	c.withState(id, func(st *caseState) { st.payment.Propose(status) })

	updated, err := c.svc.UpdateStatus(ctx, id, model.StatusUpdate{PaymentStatus: &status})
	if err != nil {
		c.withState(id, func(st *caseState) { st.payment.Revert() })
		return Item{}, c.failed(ctx, err)
	}
	c.withState(id, func(st *caseState) { st.payment.Commit(updated.PaymentStatus) })
	c.refreshAfterMutation(ctx)
	return c.item(*updated), nil
}

// SetProjectStatus меняет статус проекта.
// published без записанной ссылки не уходит в хранилище: кейс ждёт ConfirmPublish.
// Любой другой статус отменяет ожидающую публикацию и записывается сразу.
func (c *Controller) SetProjectStatus(ctx context.Context, id string, status model.ProjectStatus) (Outcome, error) {
	if err := c.validate.StatusUpdate(model.StatusUpdate{ProjectStatus: &status}); err != nil {
		return Outcome{}, err
	}
	unlock := c.lockCase(id)
	defer unlock()

	current, err := c.ensureKnown(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if status == model.ProjectPublished && !current.HasLink() {
		c.withState(id, func(st *caseState) {
			st.project.Propose(model.ProjectPublished)
			st.awaitingLink = true
		})
		return Outcome{Item: c.item(current), AwaitingLink: true}, nil
	}

	c.withState(id, func(st *caseState) {
		st.awaitingLink = false
		st.project.Propose(status)
	})
	updated, err := c.svc.UpdateStatus(ctx, id, model.StatusUpdate{ProjectStatus: &status})
	if err != nil {
		c.withState(id, func(st *caseState) { st.project.Revert() })
		return Outcome{}, c.failed(ctx, err)
	}
	c.withState(id, func(st *caseState) { st.project.Commit(updated.ProjectStatus) })
	c.refreshAfterMutation(ctx)
	return Outcome{Item: c.item(*updated)}, nil
}

// ConfirmPublish записывает published вместе со ссылкой.
// Пустая ссылка оставляет кейс в ожидании и возвращает ошибку валидации.
func (c *Controller) ConfirmPublish(ctx context.Context, id, link string) (Item, error) {
	unlock := c.lockCase(id)
	defer unlock()

	if !c.awaiting(id) {
		return Item{}, model.NewValidationError("project_status", "no pending publish for this case")
	}
	link = strings.TrimSpace(link)
	if err := model.CheckPublished(model.ProjectPublished, &link); err != nil {
		return Item{}, err
	}

	published := model.ProjectPublished
	updated, err := c.svc.UpdateStatus(ctx, id, model.StatusUpdate{ProjectStatus: &published, WebsiteLink: &link})
	if err != nil {
		c.withState(id, func(st *caseState) {
			st.awaitingLink = false
			st.project.Revert()
		})
		return Item{}, c.failed(ctx, err)
	}
	c.withState(id, func(st *caseState) {
		st.awaitingLink = false
		st.project.Commit(updated.ProjectStatus)
	})
	c.refreshAfterMutation(ctx)
	return c.item(*updated), nil
}

// CancelPublish отменяет ожидающую публикацию. Хранилище не вызывается.
// Без ожидающей публикации ничего не меняет.
func (c *Controller) CancelPublish(id string) (Item, error) {
	unlock := c.lockCase(id)
	defer unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.findLocked(id)
	if !ok {
		return Item{}, model.ErrNotFound
	}
	if st, ok := c.states[id]; ok && st.awaitingLink {
		st.awaitingLink = false
		st.project.Revert()
	}
	return c.itemLocked(cs), nil
}

// DeleteCase безвозвратно удаляет кейс и обновляет снимок
func (c *Controller) DeleteCase(ctx context.Context, id string) error {
	unlock := c.lockCase(id)
	defer unlock()

	if err := c.svc.Delete(ctx, id); err != nil {
		return c.failed(ctx, err)
	}
	c.refreshAfterMutation(ctx)
	return nil
}

// refresh загружает список и, если за это время не применён более новый, заменяет снимок
func (c *Controller) refresh(ctx context.Context, load func(context.Context) ([]model.Case, error)) error {
	c.mu.Lock()
	c.issued++
	ticket := c.issued
	c.mu.Unlock()

	cases, err := load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket < c.applied {
		return nil
	}
	c.applied = ticket
	c.snapshot = cases
	c.syncStatesLocked()
	return nil
}

// refreshAfterMutation читает список мимо кэша. Ошибка не отменяет уже
// выполненную мутацию: снимок остаётся прежним, ошибка логируется.
func (c *Controller) refreshAfterMutation(ctx context.Context) {
	if err := c.refresh(ctx, c.svc.ListFresh); err != nil {
		log.Printf("failed to refresh cases after mutation: %v", err)
	}
}

// failed обновляет снимок при NotFound и возвращает исходную ошибку
func (c *Controller) failed(ctx context.Context, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		c.refreshAfterMutation(ctx)
	}
	return err
}

// ensureKnown возвращает кейс из снимка. Если кейса в снимке нет, снимок один раз
// перечитывается мимо кэша: кейс мог быть создан в другой сессии.
func (c *Controller) ensureKnown(ctx context.Context, id string) (model.Case, error) {
	if cs, ok := c.lookup(id); ok {
		return cs, nil
	}
	if err := c.refresh(ctx, c.svc.ListFresh); err != nil {
		return model.Case{}, err
	}
	if cs, ok := c.lookup(id); ok {
		return cs, nil
	}
	return model.Case{}, model.ErrNotFound
}

func (c *Controller) lookup(id string) (model.Case, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(id)
}

// syncStatesLocked согласует локальные состояния со свежим снимком:
// подтверждённые значения берутся из снимка, ожидающие сохраняются,
// состояния удалённых кейсов отбрасываются
func (c *Controller) syncStatesLocked() {
	seen := make(map[string]struct{}, len(c.snapshot))
	for _, cs := range c.snapshot {
		seen[cs.ID] = struct{}{}
		st, ok := c.states[cs.ID]
		if !ok {
			c.states[cs.ID] = &caseState{
				payment: Committed(cs.PaymentStatus),
				project: Committed(cs.ProjectStatus),
			}
			continue
		}
		st.payment.Sync(cs.PaymentStatus)
		st.project.Sync(cs.ProjectStatus)
	}
	for id := range c.states {
		if _, ok := seen[id]; !ok {
			delete(c.states, id)
		}
	}
}

func (c *Controller) findLocked(id string) (model.Case, bool) {
	for _, cs := range c.snapshot {
		if cs.ID == id {
			return cs, true
		}
	}
	return model.Case{}, false
}

func (c *Controller) itemLocked(cs model.Case) Item {
	it := Item{Case: cs}
	st, ok := c.states[cs.ID]
	if !ok {
		return it
	}
	if v, ok := st.payment.Pending(); ok {
		it.PendingPaymentStatus = &v
	}
	if v, ok := st.project.Pending(); ok {
		it.PendingProjectStatus = &v
	}
	it.AwaitingLink = st.awaitingLink
	return it
}

func (c *Controller) item(cs model.Case) Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemLocked(cs)
}

// withState изменяет состояние кейса под общей блокировкой
func (c *Controller) withState(id string, fn func(st *caseState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok {
		st = &caseState{}
		if cs, found := c.findLocked(id); found {
			st.payment = Committed(cs.PaymentStatus)
			st.project = Committed(cs.ProjectStatus)
		}
		c.states[id] = st
	}
	fn(st)
}

func (c *Controller) awaiting(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	return ok && st.awaitingLink
}

// lockCase захватывает блокировку мутаций кейса и возвращает функцию освобождения
func (c *Controller) lockCase(id string) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &caseLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
