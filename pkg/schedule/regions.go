package schedule

import (
	"errors"
	"fmt"
)

var ErrUnknownRegion = errors.New("unknown region")

// Region groups stops by the municipality key (AGS) embedded in their ids
type Region struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

var regions = []Region{
	{Name: "Nuremberg", Prefix: "de:09564:"},
	{Name: "Fürth", Prefix: "de:09563:"},
	{Name: "Erlangen", Prefix: "de:09562:"},
}

func Regions() []Region {
	list := make([]Region, len(regions))
	copy(list, regions)

	return list
}

func RegionByName(name string) (Region, error) {
	for _, region := range regions {
		if region.Name == name {
			return region, nil
		}
	}

	return Region{}, fmt.Errorf("%w: %s", ErrUnknownRegion, name)
}
