package docmap

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/pkg/courier"
)

// TransportJobType is the document type of last-mile transport jobs.
const TransportJobType = "TransportJob"

// TransportJobMapping maps transport job documents. Other document types
// follow the same shape with their own field vocabulary.
func TransportJobMapping() Mapping {
	return Mapping{
		DocumentType:   TransportJobType,
		OrderLinkField: "deliveryOrderId",
		BuildRequest:   transportJobRequest,
	}
}

func transportJobRequest(fields document.Fields) (*courier.QuotationRequest, error) {
	origin, err := stopFromFields(fields, "pickupAddress", "pickupLat", "pickupLng")
	if err != nil {
		return nil, err
	}

	rawDrops := cast.ToSlice(fields["dropoffs"])
	if len(rawDrops) == 0 {
		return nil, fmt.Errorf("%w: dropoffs", courier.ErrMissingRequiredField)
	}
	destinations := make([]courier.Stop, 0, len(rawDrops))
	for i, rawDrop := range rawDrops {
		drop := cast.ToStringMap(rawDrop)
		stop, err := stopFromFields(drop, "address", "lat", "lng")
		if err != nil {
			return nil, fmt.Errorf("dropoff %d: %w", i, err)
		}
		destinations = append(destinations, stop)
	}

	req := &courier.QuotationRequest{
		Origin:       origin,
		Destinations: destinations,
		Cargo: courier.Cargo{
			Quantity:      cast.ToInt(fields["quantity"]),
			WeightKG:      cast.ToFloat64(fields["weightKg"]),
			VolumeM3:      cast.ToFloat64(fields["volumeM3"]),
			DeclaredValue: cast.ToFloat64(fields["declaredValue"]),
		},
		Service: serviceFromVehicleType(cast.ToString(fields["vehicleType"])),
		Contact: courier.Contact{
			Name:  cast.ToString(fields["contactName"]),
			Phone: cast.ToString(fields["contactPhone"]),
		},
	}
	if req.Cargo.Quantity == 0 {
		req.Cargo.Quantity = 1
	}

	if raw := cast.ToString(fields["scheduledPickup"]); raw != "" {
		pickup, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: scheduledPickup (%q)", courier.ErrInvalidArgument, raw)
		}
		req.ScheduledPickup = &pickup
	}

	for _, flag := range cast.ToStringSlice(fields["handlingFlags"]) {
		req.Handling = append(req.Handling, courier.HandlingFlag(flag))
	}

	return req, nil
}

// stopFromFields reads an address and its optional coordinate pair. The
// address is required; coordinates are kept only when both legs are present.
func stopFromFields(fields map[string]any, addrKey, latKey, lngKey string) (courier.Stop, error) {
	addr := cast.ToString(fields[addrKey])
	if addr == "" {
		return courier.Stop{}, fmt.Errorf("%w: %s", courier.ErrMissingRequiredField, addrKey)
	}

	stop := courier.Stop{Address: addr}
	lat, latOK := fields[latKey]
	lng, lngOK := fields[lngKey]
	if latOK && lngOK {
		stop.Coordinate = &courier.GeoPoint{
			Lat: cast.ToFloat64(lat),
			Lng: cast.ToFloat64(lng),
		}
	}
	return stop, nil
}

func serviceFromVehicleType(vehicleType string) courier.ServiceClass {
	switch vehicleType {
	case "car", "sedan":
		return courier.ServiceCar
	case "van", "mpv":
		return courier.ServiceVan
	case "truck", "lorry":
		return courier.ServiceTruck
	default:
		return courier.ServiceMotorbike
	}
}
