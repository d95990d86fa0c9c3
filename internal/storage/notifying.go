package storage

import (
	"context"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
)

// NotifyingRepository decorates a Repository with change-feed publication.
// Events are published only after the underlying write succeeded, so
// subscribers never observe a phantom change.
type NotifyingRepository struct {
	Repository
	feed *Feed
}

func NewNotifyingRepository(inner Repository, feed *Feed) *NotifyingRepository {
	return &NotifyingRepository{Repository: inner, feed: feed}
}

func (n *NotifyingRepository) Feed() *Feed {
	return n.feed
}

func (n *NotifyingRepository) publish(table string, op Op, id string) {
	if n.feed != nil {
		n.feed.Publish(Change{Table: table, Op: op, ID: id})
	}
}

func (n *NotifyingRepository) CreateProgramada(ctx context.Context, in model.Programada) error {
	if err := n.Repository.CreateProgramada(ctx, in); err != nil {
		return err
	}
	n.publish("programadas", OpInsert, in.ID)
	return nil
}

func (n *NotifyingRepository) UpdateProgramada(ctx context.Context, in model.Programada) error {
	if err := n.Repository.UpdateProgramada(ctx, in); err != nil {
		return err
	}
	n.publish("programadas", OpUpdate, in.ID)
	return nil
}

func (n *NotifyingRepository) SetProgramadaActiva(ctx context.Context, id string, activa bool) error {
	if err := n.Repository.SetProgramadaActiva(ctx, id, activa); err != nil {
		return err
	}
	n.publish("programadas", OpUpdate, id)
	return nil
}

func (n *NotifyingRepository) CreateOcurrencia(ctx context.Context, in model.Ocurrencia) error {
	if err := n.Repository.CreateOcurrencia(ctx, in); err != nil {
		return err
	}
	n.publish("ocurrencias", OpInsert, in.ID)
	return nil
}

func (n *NotifyingRepository) FinishOcurrencia(ctx context.Context, in Finish) error {
	if err := n.Repository.FinishOcurrencia(ctx, in); err != nil {
		return err
	}
	n.publish("ocurrencias", OpUpdate, in.OcurrenciaID)
	return nil
}

func (n *NotifyingRepository) CreatePedido(ctx context.Context, in model.Pedido) error {
	if err := n.Repository.CreatePedido(ctx, in); err != nil {
		return err
	}
	n.publish("pedidos", OpInsert, in.ID)
	return nil
}

func (n *NotifyingRepository) UpdatePedido(ctx context.Context, in model.Pedido) error {
	if err := n.Repository.UpdatePedido(ctx, in); err != nil {
		return err
	}
	n.publish("pedidos", OpUpdate, in.ID)
	return nil
}

func (n *NotifyingRepository) CreateTarea(ctx context.Context, in model.Tarea) error {
	if err := n.Repository.CreateTarea(ctx, in); err != nil {
		return err
	}
	n.publish("tareas", OpInsert, in.ID)
	return nil
}

func (n *NotifyingRepository) DeleteTarea(ctx context.Context, id string) error {
	if err := n.Repository.DeleteTarea(ctx, id); err != nil {
		return err
	}
	n.publish("tareas", OpDelete, id)
	return nil
}
