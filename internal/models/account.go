// Package models содержит доменную модель аккаунта,
// включающую данные учётной записи, хэш пароля и статус Pro-подписки.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Account представляет зарегистрированный аккаунт сервиса.
type Account struct {
	UID              string     // Уникальный идентификатор аккаунта
	Email            string     // Электронная почта
	Username         string     // Имя пользователя (уникальное)
	PasswordHash     string     // Хэш пароля
	IsPro            bool       // Признак оплаченной Pro-подписки
	StripeCustomerID *string    // Идентификатор покупателя у платежного провайдера, nil до первой привязки
	CreatedAt        *time.Time // Дата регистрации
}

// DummyRegister используется для приёма данных из JSON-запроса регистрации.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLogin используется для приёма данных из JSON-запроса входа.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
