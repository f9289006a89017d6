package api

import (
	"errors"
	"net/http"

	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/punchamoorthee/marketdeals/internal/service"
	"github.com/punchamoorthee/marketdeals/internal/store"
)

type errorMapping struct {
	err     error
	code    int
	message string
}

var errorMappings = []errorMapping{
	{domain.ErrOfferNotFound, http.StatusNotFound, "Предложение не найдено"},
	{domain.ErrOfferDisabled, http.StatusUnprocessableEntity, "Предложение отключено"},
	{domain.ErrOfferNotOrderable, http.StatusUnprocessableEntity, "Предложение не доступно для заказа"},
	{domain.ErrOwnOffer, http.StatusUnprocessableEntity, "Нельзя заключить сделку по своему предложению"},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "У вас недостаточно ресурсов для заключения сделки"},
	{domain.ErrQuantityExceeded, http.StatusUnprocessableEntity, "Количество не должно превышать имеющееся в наличии"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "Некорректная сумма сделки"},
	{domain.ErrUnknownTab, http.StatusNotFound, "Неизвестный тип списка"},
	{domain.ErrDealNotFound, http.StatusNotFound, "Сделка не найдена"},
	{domain.ErrUserNotFound, http.StatusNotFound, "Пользователь не найден"},
	{domain.ErrForbiddenAction, http.StatusForbidden, "Действие недоступно"},
	{domain.ErrDealClosed, http.StatusConflict, "Сделка уже закрыта"},
	{domain.ErrInvalidTransition, http.StatusConflict, "Недопустимый переход статуса сделки"},
	{domain.ErrUnknownAction, http.StatusBadRequest, "Неизвестное действие"},
	{domain.ErrInsufficientQuantity, http.StatusConflict, "Количество не должно превышать имеющееся в наличии"},
	{domain.ErrReservationUnderflow, http.StatusConflict, "Резерв предложения нарушен"},
	{service.ErrIdempotencyConflict, http.StatusConflict, "Запрос уже выполняется"},
	{service.ErrIdempotencyMismatch, http.StatusUnprocessableEntity, "Ключ идемпотентности использован с другим запросом"},
	{service.ErrInvalidRequest, http.StatusBadRequest, "Некорректный запрос"},
	{store.ErrDuplicateTitle, http.StatusConflict, "Предложение с таким названием уже существует"},
}

// errorResponse picks the status code and user-facing message for err.
func errorResponse(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.code, m.message
		}
	}
	return http.StatusInternalServerError, "Внутренняя ошибка сервера"
}
