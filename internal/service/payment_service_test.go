package service_test

import (
	"testing"

	"configas/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestConversionTagPerHost(t *testing.T) {
	express := service.ConversionTag("entregasexpressnasuaporta.store")
	assert.Equal(t, "AW-17554338622/ZCa-CN2Y7qobEL7mx7JB", express)
	assert.Equal(t, express, service.ConversionTag("www.ENTREGASEXPRESSNASUAPORTA.store"))

	assert.Equal(t, "AW-17545933033/08VqCI_Qj5obEOnhxq5B", service.ConversionTag("configas.store"))
	assert.Equal(t, "AW-17545933033/08VqCI_Qj5obEOnhxq5B", service.ConversionTag("localhost:8088"))
}
