package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/domain"
	"storefront/internal/session"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodPost, "/api/users/register", "", in, &u, nil); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login returns the user to sign into the session store.
func (c *Client) Login(ctx context.Context, email, password string) (session.User, error) {
	var out struct {
		Token   string `json:"token"`
		UserID  string `json:"userId"`
		Name    string `json:"name"`
		Surname string `json:"surname"`
		Email   string `json:"email"`
	}
	in := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/users/login", "", in, &out, nil); err != nil {
		return session.User{}, err
	}
	return session.User{ID: out.UserID, Name: out.Name, Surname: out.Surname, Email: out.Email, Token: out.Token}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/users/logout", "", nil, nil, nil)
	return err
}

type AddressRequest struct {
	Name        string `json:"name,omitempty"`
	Surname     string `json:"surname,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	AddressType string `json:"addressType,omitempty"`
}

func (c *Client) Addresses(ctx context.Context) ([]domain.Address, error) {
	var out []domain.Address
	_, err := c.do(ctx, http.MethodGet, "/api/addresses/getmyaddress", "", nil, &out, nil)
	return out, err
}

func (c *Client) CreateAddress(ctx context.Context, in AddressRequest) (*domain.Address, error) {
	var a domain.Address
	if _, err := c.do(ctx, http.MethodPost, "/api/addresses/addmyaddress", "", in, &a, nil); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) UpdateAddress(ctx context.Context, id string, in AddressRequest) (*domain.Address, error) {
	var a domain.Address
	if _, err := c.do(ctx, http.MethodPut, "/api/addresses/updateaddress/"+url.PathEscape(id), "", in, &a, nil); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/addresses/deleteaddress/"+url.PathEscape(id), "", nil, nil, nil)
	return err
}

type ContactRequest struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func (c *Client) Contacts(ctx context.Context) ([]domain.Contact, error) {
	var out []domain.Contact
	_, err := c.do(ctx, http.MethodGet, "/api/contacts/getmycontact", "", nil, &out, nil)
	return out, err
}

func (c *Client) CreateContact(ctx context.Context, in ContactRequest) (*domain.Contact, error) {
	var ct domain.Contact
	if _, err := c.do(ctx, http.MethodPost, "/api/contacts/addmycontact", "", in, &ct, nil); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (c *Client) UpdateContact(ctx context.Context, id string, in ContactRequest) (*domain.Contact, error) {
	var ct domain.Contact
	if _, err := c.do(ctx, http.MethodPut, "/api/contacts/updatemycontact/"+url.PathEscape(id), "", in, &ct, nil); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/contacts/deletemycontact/"+url.PathEscape(id), "", nil, nil, nil)
	return err
}

// Products lists the catalog through the API proxy.
func (c *Client) Products(ctx context.Context, category string) ([]domain.Product, error) {
	path := "/api/products"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out []domain.Product
	_, err := c.do(ctx, http.MethodGet, path, "", nil, &out, nil)
	return out, err
}
