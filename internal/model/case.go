package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Case представляет кейс клиента (таблица cases)
type Case struct {
	ID            string        `db:"id" json:"id"`
	ClientName    string        `db:"client_name" json:"client_name"`
	CaseName      string        `db:"case_name" json:"case_name"`
	WebsiteType   WebsiteType   `db:"website_type" json:"website_type"`
	Package       Package       `db:"package" json:"package"`
	Priority      Priority      `db:"priority" json:"priority"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	ProjectStatus ProjectStatus `db:"project_status" json:"project_status"`
	WebsiteLink   *string       `db:"website_link" json:"website_link"`
	StartDate     Date          `db:"start_date" json:"start_date"`
	EndDate       *Date         `db:"end_date" json:"end_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// CaseInput содержит данные для создания кейса; id и метки времени назначает хранилище
type CaseInput struct {
	ClientName    string        `json:"client_name" validate:"required"`
	CaseName      string        `json:"case_name" validate:"required"`
	WebsiteType   WebsiteType   `json:"website_type" validate:"website_type"`
	Package       Package       `json:"package" validate:"package"`
	Priority      Priority      `json:"priority" validate:"priority"`
	PaymentStatus PaymentStatus `json:"payment_status" validate:"payment_status"`
	ProjectStatus ProjectStatus `json:"project_status" validate:"project_status"`
	WebsiteLink   *string       `json:"website_link"`
	StartDate     Date          `json:"start_date"`
	EndDate       *Date         `json:"end_date"`
}

// ApplyDefaults заполняет пустые поля значениями формы создания кейса
func (in *CaseInput) ApplyDefaults(today Date) {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.CaseName = strings.TrimSpace(in.CaseName)
	if in.WebsiteType == "" {
		in.WebsiteType = WebsitePortfolio
	}
	if in.Package == "" {
		in.Package = PackageBeginner
	}
	if in.Priority == "" {
		in.Priority = PriorityLow
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = PaymentToBeDiscuss
	}
	if in.ProjectStatus == "" {
		in.ProjectStatus = ProjectNotComplete
	}
	if in.StartDate.IsZero() {
		in.StartDate = today
	}
	if in.WebsiteLink != nil && strings.TrimSpace(*in.WebsiteLink) == "" {
		in.WebsiteLink = nil
	}
}

// StatusUpdate описывает частичное обновление статусов; nil означает «не менять»
type StatusUpdate struct {
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	ProjectStatus *ProjectStatus `json:"project_status,omitempty"`
	WebsiteLink   *string        `json:"website_link,omitempty"`
}

// Empty сообщает, что обновление ничего не меняет
func (u StatusUpdate) Empty() bool {
	return u.PaymentStatus == nil && u.ProjectStatus == nil && u.WebsiteLink == nil
}

// Apply возвращает копию кейса с применённым обновлением.
// Пустая ссылка очищает website_link.
func (u StatusUpdate) Apply(c Case) Case {
	if u.PaymentStatus != nil {
		c.PaymentStatus = *u.PaymentStatus
	}
	if u.ProjectStatus != nil {
		c.ProjectStatus = *u.ProjectStatus
	}
	if u.WebsiteLink != nil {
		link := strings.TrimSpace(*u.WebsiteLink)
		if link == "" {
			c.WebsiteLink = nil
		} else {
			c.WebsiteLink = &link
		}
	}
	return c
}

// HasLink сообщает, записана ли непустая ссылка на сайт
func (c Case) HasLink() bool {
	return c.WebsiteLink != nil && strings.TrimSpace(*c.WebsiteLink) != ""
}

// CheckPublished проверяет инвариант: опубликованный проект обязан иметь ссылку
func CheckPublished(status ProjectStatus, link *string) error {
	if status == ProjectPublished && (link == nil || strings.TrimSpace(*link) == "") {
		return NewValidationError("website_link", "required when project_status is published")
	}
	return nil
}

// DaysRemaining возвращает число дней до end_date (отрицательное при просрочке),
// округлённое вверх; nil, если дата окончания не задана
func (c Case) DaysRemaining(now time.Time) *int {
	if c.EndDate == nil {
		return nil
	}
	hours := c.EndDate.Sub(now).Hours()
	days := int(math.Ceil(hours / 24))
	return &days
}

// DeadlineLabel формирует подпись срока по числу оставшихся дней
func DeadlineLabel(days int) string {
	switch {
	case days > 0:
		return fmt.Sprintf("%d days remaining", days)
	case days == 0:
		return "Due today"
	default:
		return fmt.Sprintf("%d days overdue", -days)
	}
}
