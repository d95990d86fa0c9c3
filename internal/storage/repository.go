package storage

import (
	"context"
	"errors"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyFinished is returned by FinishOcurrencia when the row exists
	// but is already in a terminal estado.
	ErrAlreadyFinished = errors.New("storage: ocurrencia already finished")
)

type Repository interface {
	CreateProgramada(ctx context.Context, in model.Programada) error
	GetProgramada(ctx context.Context, id string) (model.Programada, error)
	UpdateProgramada(ctx context.Context, in model.Programada) error
	SetProgramadaActiva(ctx context.Context, id string, activa bool) error
	ListProgramadas(ctx context.Context, filter ProgramadaFilter) ([]model.Programada, error)

	CreateOcurrencia(ctx context.Context, in model.Ocurrencia) error
	GetOcurrencia(ctx context.Context, id string) (model.Ocurrencia, error)
	FinishOcurrencia(ctx context.Context, in Finish) error
	ListOcurrencias(ctx context.Context, filter OcurrenciaFilter) ([]model.Ocurrencia, error)

	CreatePedido(ctx context.Context, in model.Pedido) error
	GetPedido(ctx context.Context, id string) (model.Pedido, error)
	UpdatePedido(ctx context.Context, in model.Pedido) error
	ListPedidos(ctx context.Context, filter PedidoFilter) ([]model.Pedido, error)

	CreateTarea(ctx context.Context, in model.Tarea) error
	ListTareas(ctx context.Context, filter TareaFilter) ([]model.Tarea, error)
	DeleteTarea(ctx context.Context, id string) error

	ListSectores(ctx context.Context) ([]model.Sector, error)
	CreateSector(ctx context.Context, in model.Sector) error

	CreateUsuario(ctx context.Context, in model.Usuario) error
	GetUsuario(ctx context.Context, id string) (model.Usuario, error)
	ListUsuarios(ctx context.Context) ([]model.Usuario, error)
}
