// Package aggregate содержит расчёт дневных расходов по транзакциям леджера.
package aggregate

import (
	"strings"
	"time"

	"github.com/mmeshcher/spendcontrol-system/internal/model"
)

const purchaseSubtype = "pos_purchase"

// ExcludedAuthorization описывает авторизацию, исключаемую из суммирования,
// чтобы не учесть её дважды: леджер уже может показывать оцениваемую авторизацию
// в списке pending-транзакций. Совпадение определяется парой сумма + время —
// сквозного идентификатора леджер не отдаёт, поэтому при случайном совпадении
// пары возможно лишнее или недостаточное исключение.
type ExcludedAuthorization struct {
	AmountCents     int64
	TransactionTime time.Time
}

// SumToday возвращает сумму покупок за указанную дату в минорных единицах.
// Учитываются только транзакции с подтипом pos_purchase, чья дата (без времени суток)
// равна todayDate. Подтип и сумма берутся из вложенной записи user_data, когда она
// присутствует, иначе из полей верхнего уровня. Для пустого списка сумма равна нулю.
func SumToday(transactions []model.Transaction, todayDate string, excluding *ExcludedAuthorization) int64 {
	var sum int64

	for _, tx := range transactions {
		if normalizedSubtype(tx) != purchaseSubtype {
			continue
		}

		txTime := transactionTime(tx)
		if dateOnly(txTime) != todayDate {
			continue
		}

		amount := amountCents(tx)
		if excluding != nil && amount == excluding.AmountCents && sameInstant(txTime, excluding.TransactionTime) {
			continue
		}

		sum += amount
	}

	return sum
}

func normalizedSubtype(tx model.Transaction) string {
	if tx.Data.Subtype != "" {
		return tx.Data.Subtype
	}
	return tx.Subtype
}

func transactionTime(tx model.Transaction) string {
	if tx.Data.UserData != nil && tx.Data.UserData.TransactionDate != "" {
		return tx.Data.UserData.TransactionDate
	}
	return tx.TransactionTime
}

func amountCents(tx model.Transaction) int64 {
	if tx.Data.UserData != nil {
		return tx.Data.UserData.Amount
	}
	return tx.Amount
}

func dateOnly(datetime string) string {
	if i := strings.IndexByte(datetime, 'T'); i >= 0 {
		return datetime[:i]
	}
	return datetime
}

func sameInstant(datetime string, moment time.Time) bool {
	parsed, err := time.Parse(time.RFC3339, datetime)
	if err != nil {
		return false
	}
	return parsed.Equal(moment)
}
