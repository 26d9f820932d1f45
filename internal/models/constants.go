package models

const (
	// DefaultBookingsPageSize размер страницы для списков бронирований
	DefaultBookingsPageSize = 10

	// DefaultItemsPageSize размер страницы для вещей, поиска и запросов
	DefaultItemsPageSize = 20

	// MaxPageSize верхняя граница size в запросах
	MaxPageSize = 100

	// SharerUserHeader заголовок с идентификатором текущего пользователя
	SharerUserHeader = "X-Sharer-User-Id"
)
