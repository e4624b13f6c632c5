package ctdf

import "fmt"

type TransportType string

//goland:noinspection GoUnusedConst
const (
	TransportTypeTram       TransportType = "Tram"
	TransportTypeSubway     TransportType = "Subway (U-Bahn)"
	TransportTypeRail       TransportType = "Rail (S-Bahn/Regional)"
	TransportTypeBus        TransportType = "Bus"
	TransportTypeFerry      TransportType = "Ferry"
	TransportTypeCableTram  TransportType = "Cable Tram"
	TransportTypeAerialLift TransportType = "Aerial Lift"
	TransportTypeFunicular  TransportType = "Funicular"
	TransportTypeTrolleybus TransportType = "Trolleybus"
	TransportTypeMonorail   TransportType = "Monorail"
)

// GTFS route_type codes
var routeTypeTransportTypes = map[int]TransportType{
	0:  TransportTypeTram,
	1:  TransportTypeSubway,
	2:  TransportTypeRail,
	3:  TransportTypeBus,
	4:  TransportTypeFerry,
	5:  TransportTypeCableTram,
	6:  TransportTypeAerialLift,
	7:  TransportTypeFunicular,
	11: TransportTypeTrolleybus,
	12: TransportTypeMonorail,
}

// TransportTypeFromRouteType labels a GTFS route_type; unmapped codes become "Other/<code>"
func TransportTypeFromRouteType(routeType int) TransportType {
	if transportType, exists := routeTypeTransportTypes[routeType]; exists {
		return transportType
	}

	return TransportType(fmt.Sprintf("Other/%d", routeType))
}
