// Package model содержит доменные сущности сервиса контроля расходов.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimeWindow описывает окно действия лимита расходов по карте.
type TimeWindow string

const (
	TimeWindowDaily   TimeWindow = "DAILY"
	TimeWindowWeekly  TimeWindow = "WEEKLY"
	TimeWindowMonthly TimeWindow = "MONTHLY"
)

// AuthorizationRequest описывает входящий запрос на авторизацию транзакции по карте.
// Сумма хранится в минорных единицах валюты (центах).
type AuthorizationRequest struct {
	ID              uuid.UUID
	CardID          string
	AmountCents     int64
	TransactionTime time.Time
}

// Transaction описывает транзакцию, полученную из внешнего леджера.
// Вложенная запись data.user_data является каноничным источником суммы и даты транзакции;
// поля верхнего уровня используются как запасной вариант.
type Transaction struct {
	Subtype         string          `json:"subtype"`
	Amount          int64           `json:"amount"`
	TransactionTime string          `json:"transaction_time"`
	Data            TransactionData `json:"data"`
}

// TransactionData содержит вложенные данные транзакции леджера.
type TransactionData struct {
	Subtype  string    `json:"subtype"`
	UserData *UserData `json:"user_data"`
}

// UserData содержит каноничные пользовательские данные транзакции.
type UserData struct {
	TransactionDate string `json:"transaction_date"`
	Amount          int64  `json:"amount"`
}

// SpendControl описывает настроенный лимит расходов по карте.
// Лимит задаётся в мажорных единицах валюты.
type SpendControl struct {
	TimeWindow  TimeWindow      `json:"time_window"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
}

// SpendAggregate содержит предрассчитанные суммы расходов по скользящим окнам
// в мажорных единицах. Суммы рассчитываются внешним процессом и читаются как снимок.
type SpendAggregate struct {
	WeeklySum  decimal.Decimal `json:"weekly_sum"`
	MonthlySum decimal.Decimal `json:"monthly_sum"`
}

// Decision описывает итоговое решение по авторизации.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionDeclined Decision = "DECLINED"
	DecisionError    Decision = "ERROR"
)

// Verdict — результат оценки запроса на авторизацию.
// Reason не содержит внутренних адресов и учётных данных и безопасен для выдачи клиенту.
type Verdict struct {
	Decision Decision
	Reason   string
}

// Approved возвращает вердикт об одобрении авторизации.
func Approved() Verdict {
	return Verdict{Decision: DecisionApproved}
}

// Declined возвращает вердикт об отказе с указанием причины.
func Declined(reason string) Verdict {
	return Verdict{Decision: DecisionDeclined, Reason: reason}
}

// Errored возвращает вердикт об ошибке оценки с указанием причины.
func Errored(reason string) Verdict {
	return Verdict{Decision: DecisionError, Reason: reason}
}

// DecisionRecord описывает сохранённое в журнале решение по авторизации.
type DecisionRecord struct {
	AuthorizationID uuid.UUID
	CardID          string
	AmountCents     int64
	Decision        Decision
	Reason          string
	DecidedAt       time.Time
}
