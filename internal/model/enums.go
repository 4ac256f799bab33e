package model

// Priority определяет срочность кейса и порядок сортировки (HIGH раньше LOW)
type Priority string

const (
	PriorityHigh Priority = "HIGH"
	PriorityMid  Priority = "MID"
	PriorityLow  Priority = "LOW"
)

// Priorities перечисляет все допустимые приоритеты в порядке ранга
var Priorities = []Priority{PriorityHigh, PriorityMid, PriorityLow}

// Valid сообщает, входит ли значение в закрытый набор приоритетов
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMid, PriorityLow:
		return true
	}
	return false
}

// Rank возвращает вес для сортировки: HIGH=0, MID=1, LOW=2.
// Для недопустимых значений возвращается ранг после LOW.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMid:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Label возвращает подпись приоритета для отображения
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High Priority - Urgent"
	case PriorityMid:
		return "Mid Priority - Important"
	case PriorityLow:
		return "Low Priority - Standard"
	}
	return string(p)
}

// PaymentStatus: статус оплаты кейса
type PaymentStatus string

const (
	PaymentPaid        PaymentStatus = "paid"
	PaymentHalfPaid    PaymentStatus = "half paid"
	PaymentToBeDiscuss PaymentStatus = "to be discuss"
)

var PaymentStatuses = []PaymentStatus{PaymentPaid, PaymentHalfPaid, PaymentToBeDiscuss}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentHalfPaid, PaymentToBeDiscuss:
		return true
	}
	return false
}

func (s PaymentStatus) Label() string {
	switch s {
	case PaymentPaid:
		return "Paid"
	case PaymentHalfPaid:
		return "Half Paid"
	case PaymentToBeDiscuss:
		return "To Be Discuss"
	}
	return string(s)
}

// ProjectStatus: статус выполнения проекта
type ProjectStatus string

const (
	ProjectNotComplete ProjectStatus = "not complete"
	ProjectOnGoing     ProjectStatus = "on going"
	ProjectCompleted   ProjectStatus = "completed"
	ProjectPublished   ProjectStatus = "published"
)

var ProjectStatuses = []ProjectStatus{ProjectNotComplete, ProjectOnGoing, ProjectCompleted, ProjectPublished}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectNotComplete, ProjectOnGoing, ProjectCompleted, ProjectPublished:
		return true
	}
	return false
}

func (s ProjectStatus) Label() string {
	switch s {
	case ProjectNotComplete:
		return "Not Complete"
	case ProjectOnGoing:
		return "On Going"
	case ProjectCompleted:
		return "Completed"
	case ProjectPublished:
		return "Published"
	}
	return string(s)
}

// WebsiteType: тип сайта, который заказал клиент
type WebsiteType string

const (
	WebsitePortfolio WebsiteType = "Portfolio Website"
	WebsiteStore     WebsiteType = "Store Website"
	WebsiteCorporate WebsiteType = "Corporate Website"
	WebsiteLanding   WebsiteType = "Landing Page"
	WebsiteSaaS      WebsiteType = "SaaS Platform"
	WebsiteCustomApp WebsiteType = "Custom Web App"
)

var WebsiteTypes = []WebsiteType{WebsitePortfolio, WebsiteStore, WebsiteCorporate, WebsiteLanding, WebsiteSaaS, WebsiteCustomApp}

func (t WebsiteType) Valid() bool {
	switch t {
	case WebsitePortfolio, WebsiteStore, WebsiteCorporate, WebsiteLanding, WebsiteSaaS, WebsiteCustomApp:
		return true
	}
	return false
}

// Package: пакет услуг агентства
type Package string

const (
	PackageBeginner Package = "Beginner Package"
	PackageElite    Package = "Elite Package"
	PackageBusiness Package = "Business Package"
)

var Packages = []Package{PackageBeginner, PackageElite, PackageBusiness}

func (p Package) Valid() bool {
	switch p {
	case PackageBeginner, PackageElite, PackageBusiness:
		return true
	}
	return false
}
