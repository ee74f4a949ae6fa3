// Package service реализует логику принятия решений по авторизациям.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/spendcontrol-system/internal/aggregate"
	"github.com/mmeshcher/spendcontrol-system/internal/ledger"
	"github.com/mmeshcher/spendcontrol-system/internal/model"
)

const dateLayout = "2006-01-02"

// ErrAggregateMissing возвращается, когда лимит настроен, а скользящие агрегаты
// по карте ещё не рассчитаны внешним процессом.
var ErrAggregateMissing = errors.New("spend aggregate is not populated")

// ErrUnknownWindow возвращается при нераспознанном окне лимита в настройках карты.
var ErrUnknownWindow = errors.New("unknown spend control time window")

// LedgerClient описывает контракт клиента транзакционного леджера.
type LedgerClient interface {
	FetchTransactions(ctx context.Context, cardID string, kind ledger.Kind, fromDate string) ([]model.Transaction, error)
}

// StateReader описывает контракт чтения настроек и агрегатов из кеша.
type StateReader interface {
	ReadState(ctx context.Context, cardID string) (*model.SpendControl, *model.SpendAggregate, error)
}

// Service оценивает запросы на авторизацию против настроенных лимитов расходов.
// Оценка — чистая функция от запроса и снимков кеша и леджера: сервис не хранит
// изменяемого состояния и ничего не пишет во внешние системы.
type Service struct {
	ledger LedgerClient
	state  StateReader
	now    func() time.Time
}

// NewService создаёт сервис с указанным клиентом леджера и читателем состояния.
func NewService(ledgerClient LedgerClient, state StateReader) *Service {
	return &Service{
		ledger: ledgerClient,
		state:  state,
		now:    time.Now,
	}
}

// Authorize оценивает запрос на авторизацию и возвращает вердикт.
// Ненулевая ошибка сопровождает только вердикт ERROR и содержит детали для
// журналирования; текст самого вердикта безопасен для выдачи наружу.
// Любая ошибка ввода-вывода завершает оценку целиком, без повторов и
// частичных результатов.
func (s *Service) Authorize(ctx context.Context, req model.AuthorizationRequest) (model.Verdict, error) {
	// Обе даты выводятся из одного чтения часов и используются и для запросов
	// к леджеру, и для фильтрации при суммировании.
	now := s.now().UTC()
	todayDate := now.Format(dateLayout)
	// Нижняя граница — вчера: сглаживает расхождение часовых поясов на границе суток.
	yesterdayDate := now.AddDate(0, 0, -1).Format(dateLayout)

	control, agg, err := s.state.ReadState(ctx, req.CardID)
	if err != nil {
		return model.Errored("card spend state unavailable"), fmt.Errorf("read card state: %w", err)
	}

	// Отсутствие лимита — валидное терминальное состояние: контроль не настроен.
	if control == nil {
		return model.Approved(), nil
	}

	if agg == nil {
		return model.Errored("spend aggregate is not populated"), fmt.Errorf("card %s: %w", req.CardID, ErrAggregateMissing)
	}

	var pending, posted []model.Transaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pending, err = s.ledger.FetchTransactions(gctx, req.CardID, ledger.KindPending, yesterdayDate)
		return err
	})
	g.Go(func() error {
		var err error
		posted, err = s.ledger.FetchTransactions(gctx, req.CardID, ledger.KindPosted, yesterdayDate)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Errored("transaction ledger unavailable"), fmt.Errorf("fetch transactions: %w", err)
	}

	// Оцениваемая авторизация исключается только из pending-пула: леджер уже может
	// показывать её там, а в posted она попасть ещё не могла.
	excluding := &aggregate.ExcludedAuthorization{
		AmountCents:     req.AmountCents,
		TransactionTime: req.TransactionTime,
	}
	todayCents := aggregate.SumToday(posted, todayDate, nil) + aggregate.SumToday(pending, todayDate, excluding)

	todaySpend := decimal.New(todayCents, -2)
	inFlight := decimal.New(req.AmountCents, -2)

	var total decimal.Decimal
	switch control.TimeWindow {
	case model.TimeWindowDaily:
		total = todaySpend
	case model.TimeWindowWeekly:
		total = todaySpend.Add(agg.WeeklySum)
	case model.TimeWindowMonthly:
		total = todaySpend.Add(agg.MonthlySum)
	default:
		return model.Errored("spend control is misconfigured"),
			fmt.Errorf("card %s: %w: %q", req.CardID, ErrUnknownWindow, control.TimeWindow)
	}

	// Авторизация оценивается так, как если бы она уже была проведена.
	total = total.Add(inFlight)

	if total.LessThan(control.LimitAmount) {
		return model.Approved(), nil
	}

	window := strings.ToLower(string(control.TimeWindow))
	return model.Declined(fmt.Sprintf("%s spend limit reached: %s of %s",
		window, total.StringFixed(2), control.LimitAmount.StringFixed(2))), nil
}
