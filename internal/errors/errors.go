package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do serviço.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND", "STORE_ERROR")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return e.Msg }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NumberFormatError representa um valor que deveria ser numérico e não é
// (quantidade da reposição, parâmetros de paginação).
type NumberFormatError struct {
	Field string
	Value string
}

func (e *NumberFormatError) Error() string {
	if e.Field == "" {
		return "invalid number format"
	}
	return fmt.Sprintf("invalid number format for %s: %q", e.Field, e.Value)
}
func (e *NumberFormatError) Category() string { return "NUMBER_FORMAT_ERROR" }
func (e *NumberFormatError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *NumberFormatError) Unwrap() error    { return nil }

// NewNumberFormatError cria um erro de formato numérico para o campo informado.
func NewNumberFormatError(field, value string) AppError {
	return &NumberFormatError{Field: field, Value: value}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return e.Msg }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de concorrência (OCC) que não se resolveu.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return e.Msg }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// StoreError representa falhas do armazenamento (conexão, timeout, SQL inválido).
type StoreError struct {
	Msg string
	Err error // Erro original do driver
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store error: %s", e.Msg)
	}
	return fmt.Sprintf("store error: %s: %s", e.Msg, e.Err.Error())
}
func (e *StoreError) Category() string { return "STORE_ERROR" }
func (e *StoreError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *StoreError) Unwrap() error    { return e.Err }

// NewDBError é o atalho usado pelos repositórios para falhas no DB.
func NewDBError(msg string, err error) AppError {
	return &StoreError{Msg: msg, Err: err}
}

// InternalError representa falhas inesperadas no servidor ou no serviço.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string    { return fmt.Sprintf("internal error: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// --- Helpers ---

// IsNotFound indica se algum erro na cadeia é um NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsConflict indica se algum erro na cadeia é um ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP, categoria e mensagem.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		// Falhas de infraestrutura não vazam detalhes do driver para o cliente.
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			return appErr.HTTPStatus(), appErr.Category(), "an unexpected store error occurred"
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratado como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "an unexpected error occurred"
}
