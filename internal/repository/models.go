package repository

// Models lists every GORM model owned by this service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&BookingRefModel{},
		&LocationModel{},
		&ProviderLocationModel{},
		&CheckinModel{},
		&ServiceAreaModel{},
		&RouteModel{},
		&ProviderServiceModel{},
		&MapCacheModel{},
	}
}
