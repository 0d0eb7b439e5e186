package permission

// Menu and order permissions of the point-of-sale floor.
const (
	AreaMenu  = "menu"
	AreaOrder = "order"

	MenuViewItem       = "menu.view.item"
	MenuCreateItem     = "menu.create.item"
	MenuEditItem       = "menu.edit.item"
	MenuDeleteItem     = "menu.delete.item"
	MenuViewCategory   = "menu.view.category"
	MenuEditCategory   = "menu.edit.category"
	MenuDeleteCategory = "menu.delete.category"

	OrderViewOrder    = "order.view.order"
	OrderCreateOrder  = "order.create.order"
	OrderEditOrder    = "order.edit.order"
	OrderDeleteOrder  = "order.delete.order"
	OrderVoidTicket   = "order.void.ticket"
	OrderRefundTicket = "order.refund.ticket"
)

func MenuArea() Area {
	return Area{
		Name: AreaMenu,
		Declarations: []Declaration{
			{MenuViewItem, "View menu items"},
			{MenuCreateItem, "Create menu items"},
			{MenuEditItem, "Edit menu items and pricing"},
			{MenuDeleteItem, "Delete menu items"},
			{MenuViewCategory, "View menu categories"},
			{MenuEditCategory, "Create and edit menu categories"},
			{MenuDeleteCategory, "Delete menu categories"},
		},
	}
}

func OrderArea() Area {
	return Area{
		Name: AreaOrder,
		Declarations: []Declaration{
			{OrderViewOrder, "View orders and tickets"},
			{OrderCreateOrder, "Open orders"},
			{OrderEditOrder, "Edit open orders"},
			{OrderDeleteOrder, "Delete orders"},
			{OrderVoidTicket, "Void tickets"},
			{OrderRefundTicket, "Refund tickets"},
		},
	}
}
