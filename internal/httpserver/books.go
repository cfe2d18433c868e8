package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	addresssvc "storefront/internal/service/address"
	contactsvc "storefront/internal/service/contact"
)

func listAddressesHandler(svc AddressService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context(), userID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if items == nil {
			c.JSON(http.StatusOK, []any{})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func createAddressHandler(svc AddressService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addresssvc.Input
		if !bindJSON(c, &req) {
			return
		}
		a, err := svc.Create(c.Request.Context(), userID(c), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func updateAddressHandler(svc AddressService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addresssvc.Input
		if !bindJSON(c, &req) {
			return
		}
		a, err := svc.Update(c.Request.Context(), userID(c), c.Param("id"), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func deleteAddressHandler(svc AddressService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), userID(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "address deleted", "id": id})
	}
}

func listContactsHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context(), userID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if items == nil {
			c.JSON(http.StatusOK, []any{})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func createContactHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactsvc.Input
		if !bindJSON(c, &req) {
			return
		}
		ct, err := svc.Create(c.Request.Context(), userID(c), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ct)
	}
}

func updateContactHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactsvc.Input
		if !bindJSON(c, &req) {
			return
		}
		ct, err := svc.Update(c.Request.Context(), userID(c), c.Param("id"), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

func deleteContactHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), userID(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "contact deleted", "id": id})
	}
}
