package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrUnknownProduct         = errors.New("producto sin BOM o inexistente")
	ErrUnknownMaterial        = errors.New("materia prima inexistente")
	ErrConcurrentModification = errors.New("modificación concurrente detectada")
	ErrLockTimeout            = errors.New("timeout esperando bloqueo de ítem")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrActiveCheckExists      = errors.New("ya existe un conteo de inventario activo")
	ErrSeizureNoDonors        = errors.New("no hay stock reservado de menor prioridad para reasignar")
)
