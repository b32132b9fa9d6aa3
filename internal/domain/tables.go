package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysUser{},
	&SysOprLog{},
	// Inventory
	&Category{},
	&Product{},
	&Sale{},
}
