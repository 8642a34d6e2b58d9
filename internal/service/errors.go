// Пакет service — бизнес-логика хостинга подкастов:
// загрузка аудиофайлов, выдача, удаление и генерация RSS-фида.
package service

import "fmt"

// ServiceError — ошибка бизнес-логики с HTTP-кодом.
// Handlers транслируют её в JSON-ответ через apierrors.WriteError.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
